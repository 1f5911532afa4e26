package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"rationalist/internal/gateway/service/session"
)

const (
	SessionServiceName     = "rationalist.v1.SessionService"
	CreateSessionProcedure = "/" + SessionServiceName + "/CreateSession"
	ResumeSessionProcedure = "/" + SessionServiceName + "/ResumeSession"
	GetSnapshotProcedure   = "/" + SessionServiceName + "/GetSnapshot"
	SubmitTextProcedure    = "/" + SessionServiceName + "/SubmitText"
	SubmitChoiceProcedure  = "/" + SessionServiceName + "/SubmitChoice"
)

type SessionHandler struct {
	svc *session.Service
}

func NewSessionHandler(svc *session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Routes returns the connect handlers keyed by procedure path.
func (h *SessionHandler) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		CreateSessionProcedure: connect.NewUnaryHandler(CreateSessionProcedure, h.CreateSession),
		ResumeSessionProcedure: connect.NewUnaryHandler(ResumeSessionProcedure, h.ResumeSession),
		GetSnapshotProcedure:   connect.NewUnaryHandler(GetSnapshotProcedure, h.GetSnapshot),
		SubmitTextProcedure:    connect.NewUnaryHandler(SubmitTextProcedure, h.SubmitText),
		SubmitChoiceProcedure:  connect.NewUnaryHandler(SubmitChoiceProcedure, h.SubmitChoice),
	}
}

func (h *SessionHandler) CreateSession(ctx context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	snap, err := h.svc.Create(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return snapshotResponse(snap)
}

func (h *SessionHandler) ResumeSession(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	reportID, err := requireField(req.Msg, "reportId")
	if err != nil {
		return nil, err
	}
	snap, err := h.svc.Resume(ctx, reportID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return snapshotResponse(snap)
}

func (h *SessionHandler) GetSnapshot(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := requireField(req.Msg, "sessionId")
	if err != nil {
		return nil, err
	}
	snap, err := h.svc.Snapshot(id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return snapshotResponse(snap)
}

// SubmitText blocks until the resulting generation, if any, has finished.
func (h *SessionHandler) SubmitText(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := requireField(req.Msg, "sessionId")
	if err != nil {
		return nil, err
	}
	out, err := h.svc.SubmitText(ctx, id, stringField(req.Msg, "input"))
	if err != nil {
		return nil, toConnectError(err)
	}
	return structResponse(out)
}

func (h *SessionHandler) SubmitChoice(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := requireField(req.Msg, "sessionId")
	if err != nil {
		return nil, err
	}
	value, err := requireField(req.Msg, "value")
	if err != nil {
		return nil, err
	}
	out, err := h.svc.SubmitChoice(ctx, id, value)
	if err != nil {
		return nil, toConnectError(err)
	}
	return structResponse(out)
}

func snapshotResponse(snap session.Snapshot) (*connect.Response[structpb.Struct], error) {
	return structResponse(snap)
}

func structResponse(v any) (*connect.Response[structpb.Struct], error) {
	msg, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(msg), nil
}
