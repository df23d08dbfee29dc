package webserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// HealthHandler reports the server version and the state of its backends.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler 创建一个新的 HealthHandler 实例。
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// HealthResponse 是 GET /healthz 的响应体。
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ErrorResponse 是 JSON 错误响应的通用结构体。
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health 处理 GET /healthz。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Version: h.version, Checks: map[string]string{}}
	status := http.StatusOK
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			log.Printf("health check %s failed: %v", name, err)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSONResponse(w, status, resp)
}

// NotFound answers unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, "not found", http.StatusNotFound)
}

// writeJSONResponse 是一个辅助函数，用于发送 JSON 响应。
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("encode JSON response: %v", err)
		}
	}
}

// writeJSONError 是一个辅助函数，用于发送 JSON 格式的错误响应。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}
