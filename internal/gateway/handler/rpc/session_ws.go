package rpc

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"rationalist/internal/conversation"
	"rationalist/internal/gateway/service/session"
	"rationalist/internal/report"
	"rationalist/internal/transcript"
)

const (
	sessionWSWriteWait = 10 * time.Second
	sessionWSPongWait  = 60 * time.Second
	sessionWSPingEvery = (sessionWSPongWait * 9) / 10
)

var sessionWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type sessionWSInbound struct {
	Type  string `json:"type"`
	Input string `json:"input,omitempty"`
	Value string `json:"value,omitempty"`
}

type sessionWSOutbound struct {
	Type      string                `json:"type"`
	SessionID string                `json:"sessionId,omitempty"`
	Snapshot  *session.Snapshot     `json:"snapshot,omitempty"`
	Message   *transcript.Message   `json:"message,omitempty"`
	Loading   *bool                 `json:"loading,omitempty"`
	Report    *report.Report        `json:"report,omitempty"`
	Outcome   *conversation.Outcome `json:"outcome,omitempty"`
	Code      string                `json:"code,omitempty"`
	Error     string                `json:"error,omitempty"`
}

type SessionWSHandler struct {
	svc *session.Service
}

func NewSessionWSHandler(svc *session.Service) *SessionWSHandler {
	return &SessionWSHandler{svc: svc}
}

// HandleSessionWS attaches a connection to a session. Without session_id a
// new session is created.
func (h *SessionWSHandler) HandleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID != "" {
		if _, err := h.svc.Snapshot(sessionID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}

	conn, err := sessionWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(sessionWSPongWait)); err != nil {
		log.Printf("session ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(sessionWSPongWait))
	})

	writeCh := make(chan sessionWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(sessionWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(sessionWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(sessionWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	if sessionID == "" {
		snap, err := h.svc.Create(ctx)
		if err != nil {
			pushSessionWS(writeCh, wsError(err))
			cancel()
			<-writerDone
			return
		}
		sessionID = snap.ID
	}

	subCh, subErr := h.svc.Subscribe(ctx, sessionID)
	if subErr != nil {
		pushSessionWS(writeCh, wsError(subErr))
		cancel()
		<-writerDone
		return
	}
	pushSessionWS(writeCh, sessionWSOutbound{Type: "subscribed", SessionID: sessionID})
	if snap, err := h.svc.Snapshot(sessionID); err == nil {
		pushSessionWS(writeCh, sessionWSOutbound{Type: "snapshot", SessionID: sessionID, Snapshot: &snap})
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-subCh:
				if !ok {
					pushSessionWS(writeCh, sessionWSOutbound{Type: "error", Code: "not_found", Error: "session closed"})
					return
				}
				pushSessionWS(writeCh, eventOutbound(sessionID, evt))
			}
		}
	}()

	for {
		var in sessionWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "":
			pushSessionWS(writeCh, sessionWSOutbound{Type: "error", Code: "invalid_argument", Error: "type is required"})
		case "ping":
			pushSessionWS(writeCh, sessionWSOutbound{Type: "pong"})
		case "text":
			input := in.Input
			go h.submit(ctx, writeCh, func() (conversation.Outcome, error) {
				return h.svc.SubmitText(ctx, sessionID, input)
			})
		case "choice":
			value := in.Value
			go h.submit(ctx, writeCh, func() (conversation.Outcome, error) {
				return h.svc.SubmitChoice(ctx, sessionID, value)
			})
		default:
			pushSessionWS(writeCh, sessionWSOutbound{Type: "error", Code: "invalid_argument", Error: "unsupported type: " + msgType})
		}
	}
}

// submit runs off the read loop so pings keep flowing during a generation.
// Results stream through the subscription; the ack reports the outcome.
func (h *SessionWSHandler) submit(ctx context.Context, writeCh chan sessionWSOutbound, fn func() (conversation.Outcome, error)) {
	out, err := fn()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		pushSessionWS(writeCh, wsError(err))
		return
	}
	pushSessionWS(writeCh, sessionWSOutbound{Type: "ack", Outcome: &out})
}

func eventOutbound(sessionID string, evt session.Event) sessionWSOutbound {
	switch evt.Kind {
	case session.EventLoading:
		loading := evt.Loading
		return sessionWSOutbound{Type: "loading", SessionID: sessionID, Loading: &loading}
	case session.EventReportReady:
		return sessionWSOutbound{Type: "report_ready", SessionID: sessionID, Report: evt.Report}
	default:
		return sessionWSOutbound{Type: "message", SessionID: sessionID, Message: evt.Message}
	}
}

func wsError(err error) sessionWSOutbound {
	return sessionWSOutbound{Type: "error", Code: errorCode(err).String(), Error: err.Error()}
}

func pushSessionWS(writeCh chan sessionWSOutbound, out sessionWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
