package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"rationalist/internal/gateway/service/session"
)

type TraceHandler struct {
	sessions *session.Service
	logger   *log.Logger
}

func NewTraceHandler(sessions *session.Service, logger *log.Logger) *TraceHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &TraceHandler{sessions: sessions, logger: logger}
}

// HandleFrontendTrace records a client-side trace line in the server log.
func (h *TraceHandler) HandleFrontendTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var in struct {
		Timestamp string         `json:"timestamp"`
		SessionID string         `json:"session_id"`
		Stage     string         `json:"stage"`
		Level     string         `json:"level"`
		Fields    map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	sessionID := strings.TrimSpace(in.SessionID)
	stage := strings.TrimSpace(in.Stage)
	if sessionID == "" || stage == "" {
		http.Error(w, "session_id and stage are required", http.StatusBadRequest)
		return
	}
	fields := map[string]any{}
	for k, v := range in.Fields {
		fields[k] = v
	}
	if lvl := strings.TrimSpace(in.Level); lvl != "" {
		fields["level"] = lvl
	}
	if ts := strings.TrimSpace(in.Timestamp); ts != "" {
		fields["frontend_timestamp"] = ts
	}
	h.logger.Printf("session %s: frontend %s %v", sessionID, stage, fields)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok": true,
	})
}

// HandleSessionLog dumps a live session's transcript and state.
func (h *TraceHandler) HandleSessionLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	snap, err := h.sessions.Snapshot(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": sessionID,
		"state":      snap.State,
		"messages":   snap.Messages,
	})
}
