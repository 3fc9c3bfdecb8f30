package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Result     interface{}  `json:"result"`
	Success    bool         `json:"success"`
	Errors     []APIError   `json:"errors"`
	Messages   []APIMessage `json:"messages"`
	ResultInfo *ResultInfo  `json:"result_info,omitempty"`
}

type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError carries the HTTP status as its code.
type APIError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Source  *APIErrorSource `json:"source,omitempty"`
}

// APIErrorSource identifies the request field that caused the error.
type APIErrorSource struct {
	Pointer string `json:"pointer"`
}

// ResultInfo carries pagination metadata for list endpoints.
type ResultInfo struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// NewResultInfo computes the last page; it is at least 1.
func NewResultInfo(page, perPage, total int) ResultInfo {
	last := 1
	if perPage > 0 && total > 0 {
		last = (total + perPage - 1) / perPage
	}
	return ResultInfo{CurrentPage: page, LastPage: last, PerPage: perPage, Total: total}
}

func SuccessResponse(result interface{}) Response {
	return Response{
		Result:   result,
		Success:  true,
		Errors:   []APIError{},
		Messages: []APIMessage{},
	}
}

func ErrorResponse(code int, message string) Response {
	return ErrorsResponse(APIError{Code: code, Message: message})
}

// ErrorsResponse builds a failed response carrying several errors, such as
// one per invalid field.
func ErrorsResponse(errs ...APIError) Response {
	return Response{
		Result:   nil,
		Success:  false,
		Errors:   errs,
		Messages: []APIMessage{},
	}
}

// PaginatedResponse builds a successful response that includes result_info.
func PaginatedResponse(result interface{}, info ResultInfo) Response {
	resp := SuccessResponse(result)
	resp.ResultInfo = &info
	return resp
}

// WriteJSON serialises resp as JSON and writes it to w with the given HTTP status code.
func WriteJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
