package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"rationalist/internal/conversation"
	"rationalist/internal/gateway/repository/report"
	"rationalist/internal/gateway/service/session"
	"rationalist/internal/generation"
)

// toStruct converts any JSON-encodable value into a Struct payload.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode response: %w", err))
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("encode response: %w", err))
	}
	return out, nil
}

func stringField(msg *structpb.Struct, name string) string {
	if msg == nil {
		return ""
	}
	v, ok := msg.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func requireField(msg *structpb.Struct, name string) (string, error) {
	v := stringField(msg, name)
	if v == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is required", name))
	}
	return v, nil
}

// errorCode classifies service errors for both RPC and websocket clients.
func errorCode(err error) connect.Code {
	var gErr *generation.Error
	switch {
	case errors.Is(err, session.ErrUnknownSession), errors.Is(err, report.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, conversation.ErrBusy):
		return connect.CodeAborted
	case errors.Is(err, conversation.ErrNothingToPrioritize), errors.Is(err, conversation.ErrNothingToPlan):
		return connect.CodeFailedPrecondition
	case errors.As(err, &gErr):
		return connect.CodeUnavailable
	}
	return connect.CodeInternal
}

func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var cErr *connect.Error
	if errors.As(err, &cErr) {
		return err
	}
	return connect.NewError(errorCode(err), err)
}
