package rpc

import (
	"errors"
	"fmt"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationalist/internal/conversation"
	"rationalist/internal/gateway/repository/report"
	"rationalist/internal/gateway/service/session"
	"rationalist/internal/generation"
)

func TestErrorCode(t *testing.T) {
	cases := map[error]connect.Code{
		session.ErrUnknownSession:                      connect.CodeNotFound,
		fmt.Errorf("wrap: %w", report.ErrNotFound):     connect.CodeNotFound,
		conversation.ErrBusy:                           connect.CodeAborted,
		conversation.ErrNothingToPlan:                  connect.CodeFailedPrecondition,
		conversation.ErrNothingToPrioritize:            connect.CodeFailedPrecondition,
		&generation.Error{Phase: generation.PhasePlan}: connect.CodeUnavailable,
		errors.New("boom"):                             connect.CodeInternal,
	}
	for err, want := range cases {
		assert.Equal(t, want, errorCode(err), err.Error())
	}
}

func TestToConnectErrorKeepsExistingCode(t *testing.T) {
	in := connect.NewError(connect.CodeInvalidArgument, errors.New("bad"))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(toConnectError(in)))
	assert.Nil(t, toConnectError(nil))
}

func TestToStruct(t *testing.T) {
	msg, err := toStruct(map[string]any{"sessionId": " abc ", "n": 2})
	require.NoError(t, err)
	assert.Equal(t, "abc", stringField(msg, "sessionId"))
	assert.Equal(t, float64(2), msg.GetFields()["n"].GetNumberValue())

	_, err = requireField(msg, "missing")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
