package session

import (
	"context"
	"sync"

	"rationalist/internal/conversation"
	"rationalist/internal/report"
	"rationalist/internal/transcript"
)

// Session binds one engine to its subscribers.
type Session struct {
	id     string
	svc    *Service
	engine *conversation.Engine
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	subs    map[int]chan Event
	nextSub int
}

func (s *Session) ID() string { return s.id }

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:       s.id,
		State:    s.engine.State(),
		Messages: s.engine.Messages(),
		Report:   s.engine.Report(),
	}
}

func (s *Session) OnMessage(msg transcript.Message) {
	s.broadcast(Event{Kind: EventMessage, Message: &msg})
}

func (s *Session) OnLoading(loading bool) {
	s.broadcast(Event{Kind: EventLoading, Loading: loading})
}

func (s *Session) OnReportReady(r report.Report) {
	if s.ctx.Err() == nil {
		s.svc.persist(s.id, r)
	}
	s.broadcast(Event{Kind: EventReportReady, Report: &r})
}

func (s *Session) subscribe() (<-chan Event, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, false
	}
	key := s.nextSub
	s.nextSub++
	ch := make(chan Event, subscriberBuffer)
	s.subs[key] = ch
	return ch, key, true
}

func (s *Session) unsubscribe(key int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[key]; ok {
		delete(s.subs, key)
		close(ch)
	}
}

func (s *Session) broadcast(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		pushEvent(ch, evt)
	}
}

func (s *Session) teardown() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, ch := range s.subs {
		delete(s.subs, key)
		close(ch)
	}
}

// pushEvent never blocks: when the buffer is full the oldest event is
// dropped to make room.
func pushEvent(ch chan Event, evt Event) {
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}
