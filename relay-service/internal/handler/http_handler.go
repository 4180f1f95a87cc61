package handler

import (
	"encoding/json"
	"net/http"

	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/domain"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/hub"
)

type HTTPHandler struct {
	hub          *hub.Hub
	advertiseURL string
}

func NewHTTPHandler(h *hub.Hub, advertiseURL string) *HTTPHandler {
	return &HTTPHandler{hub: h, advertiseURL: advertiseURL}
}

// Descriptor serves the relay descriptor for panels that poll this service
// directly instead of a hosted copy.
func (h *HTTPHandler) Descriptor(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, domain.Descriptor{URL: h.advertiseURL})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": h.hub.ClientCount(),
		"bots":    h.hub.BotCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, domain.NewErrorMessage(code, message))
}
