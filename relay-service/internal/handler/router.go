package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/unrolled/secure"

	pkglog "github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

// NewRouter wires the relay routes behind request logging and security
// headers.
func NewRouter(ws *WSHandler, api *HTTPHandler, logger zerolog.Logger, development bool) http.Handler {
	router := mux.NewRouter()

	// WebSocket endpoints
	router.HandleFunc("/ws", ws.HandlePanel)
	router.HandleFunc("/", ws.HandlePanel).Headers("Upgrade", "websocket")
	router.HandleFunc("/bot", ws.HandleBot)

	// HTTP endpoints
	router.HandleFunc("/current.json", api.Descriptor).Methods(http.MethodGet)
	router.HandleFunc("/health", api.HealthCheck).Methods(http.MethodGet)

	sm := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "no-referrer",
		IsDevelopment:      development,
	})

	return pkglog.HTTPMiddleware(logger)(sm.Handler(router))
}
