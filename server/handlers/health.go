package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse is the liveness payload. It carries no dependency checks;
// the completion provider being down is surfaced per-request, not here.
type HealthResponse struct {
	Status string `json:"status"`
	Time   int64  `json:"time"`
}

// HealthHandler answers GET /healthz with a process-liveness signal.
type HealthHandler struct{}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status: "ok",
		Time:   time.Now().Unix(),
	})
}

// IndexHandler answers GET / with a short identifying string so the
// platform's URL check and operators poking at the service see something
// recognizable.
type IndexHandler struct{}

// NewIndexHandler creates an index handler.
func NewIndexHandler() *IndexHandler {
	return &IndexHandler{}
}

// ServeHTTP implements http.Handler.
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK - wxrelay backend"))
}
