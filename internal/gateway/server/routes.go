package server

import (
	"encoding/json"
	"log"
	"net/http"

	"rationalist/internal/gateway/handler"
	"rationalist/internal/gateway/handler/rpc"
	"rationalist/internal/gateway/middleware"
)

func NewMux(
	sessionHandler *rpc.SessionHandler,
	reportHandler *rpc.ReportHandler,
	sessionWSHandler *rpc.SessionWSHandler,
	traceHandler *handler.TraceHandler,
	logger *log.Logger,
	allowedOrigins ...string,
) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	for path, h := range sessionHandler.Routes() {
		mux.Handle(path, h)
	}
	for path, h := range reportHandler.Routes() {
		mux.Handle(path, h)
	}

	// Streaming
	mux.HandleFunc("/ws/session", sessionWSHandler.HandleSessionWS)

	// Debug Handlers
	mux.HandleFunc("/debug/frontend-trace", traceHandler.HandleFrontendTrace)
	mux.HandleFunc("/debug/session-log", traceHandler.HandleSessionLog)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	// Middleware
	return middleware.Logging(logger)(middleware.CORS(allowedOrigins...)(mux))
}
