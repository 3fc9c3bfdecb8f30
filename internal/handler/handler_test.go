package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/leca/seo-images/internal/api"
	"github.com/leca/seo-images/internal/app"
	"github.com/leca/seo-images/internal/config"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// testConfig points every resource at temporary locations.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.AuthToken = testToken
	cfg.DBDSN = filepath.Join(t.TempDir(), "handler.db")
	cfg.StoragePath = t.TempDir()
	cfg.Sizes = []int{480, 768}
	return cfg
}

// testServer creates a test HTTP server backed by SQLite and a temporary
// filesystem disk.
func testServer(t *testing.T, cfg *config.Config) (*httptest.Server, *app.App) {
	t.Helper()
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(a.Server.Router)
	t.Cleanup(func() {
		ts.Close()
		a.Close(context.Background())
	})
	return ts, a
}

// authReq creates an *http.Request with the test bearer token.
func authReq(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func createTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartFileBody builds a multipart request body with a file field.
func multipartFileBody(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func upload(t *testing.T, ts *httptest.Server, fileName string, content []byte) *http.Response {
	t.Helper()
	body, contentType := multipartFileBody(t, "file", fileName, content)
	req := authReq(t, http.MethodPost, ts.URL+"/seo-images/upload", body)
	req.Header.Set("Content-Type", contentType)
	return do(t, req)
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := authReq(t, http.MethodPost, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

type envelope[T any] struct {
	Result     T               `json:"result"`
	Success    bool            `json:"success"`
	Errors     []api.APIError  `json:"errors"`
	ResultInfo *api.ResultInfo `json:"result_info"`
}

// decodeResponse decodes the JSON body into the provided target.
func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", data)
}

type formatItem struct {
	Format   string `json:"format"`
	Original struct {
		Exists bool    `json:"exists"`
		URL    *string `json:"url"`
		Size   int64   `json:"size"`
	} `json:"original"`
	Sizes []struct {
		Width  int    `json:"width"`
		URL    string `json:"url"`
		Exists bool   `json:"exists"`
	} `json:"sizes"`
}

type imageItem struct {
	ID         int64        `json:"id"`
	FolderPath string       `json:"folder_path"`
	Basename   string       `json:"basename"`
	PreviewURL string       `json:"preview_url"`
	Alt        string       `json:"alt"`
	Title      string       `json:"title"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Formats    []formatItem `json:"formats"`
}

func uploadOK(t *testing.T, ts *httptest.Server, fileName string, w, h int) imageItem {
	t.Helper()
	resp := upload(t, ts, fileName, createTestPNG(t, w, h))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env envelope[imageItem]
	decodeResponse(t, resp, &env)
	require.True(t, env.Success)
	return env.Result
}

func today() string {
	return time.Now().Format("2006/01/02")
}
