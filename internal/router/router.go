package router

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/seo-images/internal/api"
	"github.com/leca/seo-images/internal/config"
	"github.com/leca/seo-images/internal/handler"
	"github.com/leca/seo-images/internal/metrics"
)

// Server holds the HTTP router and what it was built from.
type Server struct {
	Handler *handler.Handler
	Config  *config.Config
	Metrics *metrics.Metrics
	Router  chi.Router
}

// New creates a Server with a fully configured chi router. m may be nil,
// in which case /metrics is not exposed.
func New(h *handler.Handler, cfg *config.Config, m *metrics.Metrics) *Server {
	s := &Server{Handler: h, Config: cfg, Metrics: m}

	r := chi.NewRouter()

	// CORS must run first to answer preflight OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Auth-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}

	r.Get("/health", s.Health)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	r.Get("/sitemap-images.xml", h.GetSitemap)

	// Files on the filesystem disk. The FTP disk is served by its own host.
	if prefix := strings.TrimRight(cfg.StorageURLPrefix, "/"); strings.HasPrefix(prefix, "/") {
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(cfg.StoragePath)})))
	}

	r.Route("/seo-images", func(r chi.Router) {
		r.Use(api.AuthMiddleware(cfg.AuthToken))

		r.Get("/list", h.ListImages)
		r.Post("/upload", h.UploadImage)
		r.Post("/render", h.RenderPicture)
		r.Get("/dashboard", h.GetDashboard)

		r.Post("/{id}/update-meta", h.UpdateMeta)
		r.Delete("/{id}", h.DeleteImage)
	})

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}

// filesOnly hides directories so the storage tree cannot be listed.
type filesOnly struct {
	root http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}
