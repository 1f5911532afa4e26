package session

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rationalist/internal/conversation"
	reportrepo "rationalist/internal/gateway/repository/report"
	"rationalist/internal/generation"
	"rationalist/internal/llm"
	"rationalist/internal/report"
)

func newTestService(t *testing.T, max int) (*Service, *reportrepo.MemoryStore) {
	t.Helper()
	store := reportrepo.NewMemoryStore()
	gw := generation.NewLLMGateway(llm.NewFakeClient(), generation.Options{Retries: 0})
	svc, err := New(gw, store, Config{MaxSessions: max, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	return svc, store
}

func runToReport(t *testing.T, svc *Service, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.SubmitText(ctx, id, "Revenue is down, need to fix it")
	require.NoError(t, err)
	for _, v := range []string{"confirm", "formulaic", "confirm", "confirm", "confirm"} {
		out, err := svc.SubmitChoice(ctx, id, v)
		require.NoError(t, err)
		require.True(t, out.Accepted, v)
	}
}

func TestCreateStartsInDefine(t *testing.T) {
	svc, _ := newTestService(t, 4)

	snap, err := svc.Create(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, conversation.PhaseDefine, snap.State.Phase)
	assert.Len(t, snap.Messages, 1)

	again, err := svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, again.ID)
}

func TestUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, 4)

	_, err := svc.SubmitText(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = svc.Snapshot("missing")
	assert.ErrorIs(t, err, ErrUnknownSession)
	_, err = svc.Subscribe(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestEvictionTearsDownOldestSession(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()

	first, err := svc.Create(ctx)
	require.NoError(t, err)
	sub, err := svc.Subscribe(ctx, first.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.Snapshot(first.ID)
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.Equal(t, 1, svc.Len())

	select {
	case _, ok := <-sub:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed")
	}
}

func TestReportIsStoredAndResumable(t *testing.T) {
	svc, store := newTestService(t, 4)
	ctx := context.Background()

	snap, err := svc.Create(ctx)
	require.NoError(t, err)
	sub, err := svc.Subscribe(ctx, snap.ID)
	require.NoError(t, err)

	runToReport(t, svc, snap.ID)

	stored, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, report.StageSynthesized, stored.Stage())

	var sawReady bool
	for len(sub) > 0 {
		evt := <-sub
		if evt.Kind == EventReportReady {
			sawReady = true
			assert.Equal(t, "fake synthesis", evt.Report.Synthesis.Summary)
		}
	}
	assert.True(t, sawReady)

	resumed, err := svc.Resume(ctx, snap.ID)
	require.NoError(t, err)
	assert.NotEqual(t, snap.ID, resumed.ID)
	assert.Equal(t, conversation.PhaseDone, resumed.State.Phase)
	assert.Equal(t, stored, resumed.Report)
}

func TestResumeMissingReport(t *testing.T) {
	svc, _ := newTestService(t, 4)
	_, err := svc.Resume(context.Background(), "nope")
	assert.ErrorIs(t, err, reportrepo.ErrNotFound)
}

func TestSubscriberReceivesMessages(t *testing.T) {
	svc, _ := newTestService(t, 4)
	ctx, cancel := context.WithCancel(context.Background())

	snap, err := svc.Create(ctx)
	require.NoError(t, err)
	sub, err := svc.Subscribe(ctx, snap.ID)
	require.NoError(t, err)

	_, err = svc.SubmitText(ctx, snap.ID, "Revenue is down")
	require.NoError(t, err)

	var kinds []EventKind
	for len(sub) > 0 {
		kinds = append(kinds, (<-sub).Kind)
	}
	assert.Equal(t, []EventKind{EventMessage, EventLoading, EventLoading, EventMessage}, kinds)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestPushEventDropsOldest(t *testing.T) {
	ch := make(chan Event, 2)
	pushEvent(ch, Event{Kind: EventLoading, Loading: true})
	pushEvent(ch, Event{Kind: EventMessage})
	pushEvent(ch, Event{Kind: EventReportReady})

	assert.Equal(t, EventMessage, (<-ch).Kind)
	assert.Equal(t, EventReportReady, (<-ch).Kind)
}
