package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	reportrepo "rationalist/internal/gateway/repository/report"
)

const (
	ReportServiceName    = "rationalist.v1.ReportService"
	GetReportProcedure   = "/" + ReportServiceName + "/GetReport"
	ListReportsProcedure = "/" + ReportServiceName + "/ListReports"
)

type ReportHandler struct {
	store reportrepo.Store
}

func NewReportHandler(store reportrepo.Store) *ReportHandler {
	return &ReportHandler{store: store}
}

func (h *ReportHandler) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		GetReportProcedure:   connect.NewUnaryHandler(GetReportProcedure, h.GetReport),
		ListReportsProcedure: connect.NewUnaryHandler(ListReportsProcedure, h.ListReports),
	}
}

func (h *ReportHandler) GetReport(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := requireField(req.Msg, "reportId")
	if err != nil {
		return nil, err
	}
	r, err := h.store.Get(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return structResponse(map[string]any{
		"reportId": id,
		"report":   r,
	})
}

func (h *ReportHandler) ListReports(ctx context.Context, _ *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	ids, err := h.store.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return structResponse(map[string]any{"reportIds": ids})
}
