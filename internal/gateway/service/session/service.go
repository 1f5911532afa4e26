package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"rationalist/internal/conversation"
	reportrepo "rationalist/internal/gateway/repository/report"
	"rationalist/internal/generation"
	"rationalist/internal/report"
	"rationalist/internal/transcript"
)

const (
	DefaultMaxSessions = 256
	persistTimeout     = 10 * time.Second
	subscriberBuffer   = 32
)

var ErrUnknownSession = errors.New("session not found")

type EventKind string

const (
	EventMessage     EventKind = "message"
	EventLoading     EventKind = "loading"
	EventReportReady EventKind = "report_ready"
)

type Event struct {
	Kind    EventKind
	Message *transcript.Message
	Loading bool
	Report  *report.Report
}

type Snapshot struct {
	ID       string               `json:"id"`
	State    conversation.State   `json:"state"`
	Messages []transcript.Message `json:"messages"`
	Report   report.Report        `json:"report"`
}

type Config struct {
	MaxSessions int
	Logger      *log.Logger
}

// Service owns the live sessions. The registry is bounded; an evicted
// session is torn down and any generation still running for it is
// canceled.
type Service struct {
	gw       generation.Gateway
	store    reportrepo.Store
	logger   *log.Logger
	sessions *lru.Cache[string, *Session]
}

func New(gw generation.Gateway, store reportrepo.Store, cfg Config) (*Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Service{gw: gw, store: store, logger: logger}
	cache, err := lru.NewWithEvict[string, *Session](cfg.MaxSessions, func(id string, sess *Session) {
		sess.teardown()
		s.logger.Printf("session %s: closed", id)
	})
	if err != nil {
		return nil, err
	}
	s.sessions = cache
	return s, nil
}

// Create starts a fresh session.
func (s *Service) Create(_ context.Context) (Snapshot, error) {
	sess := s.newSession(func(n conversation.Notifier) *conversation.Engine {
		return conversation.New(s.gw, conversation.WithNotifier(n), conversation.WithLogger(s.logger))
	})
	s.logger.Printf("session %s: created", sess.id)
	return sess.snapshot(), nil
}

// Resume starts a session on a stored report.
func (s *Service) Resume(ctx context.Context, reportID string) (Snapshot, error) {
	if s.store == nil {
		return Snapshot{}, reportrepo.ErrNotFound
	}
	r, err := s.store.Get(ctx, reportID)
	if err != nil {
		return Snapshot{}, err
	}
	sess := s.newSession(func(n conversation.Notifier) *conversation.Engine {
		return conversation.Resume(s.gw, r, conversation.WithNotifier(n), conversation.WithLogger(s.logger))
	})
	s.logger.Printf("session %s: resumed from report %s", sess.id, strings.TrimSpace(reportID))
	return sess.snapshot(), nil
}

func (s *Service) newSession(build func(conversation.Notifier) *conversation.Engine) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		id:     uuid.NewString(),
		svc:    s,
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]chan Event),
	}
	sess.engine = build(sess)
	s.sessions.Add(sess.id, sess)
	return sess
}

func (s *Service) lookup(id string) (*Session, error) {
	sess, ok := s.sessions.Get(strings.TrimSpace(id))
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

// SubmitText forwards text to the session's engine. Generation runs on the
// session's own context so it is not tied to the caller's connection.
func (s *Service) SubmitText(_ context.Context, id, input string) (conversation.Outcome, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return conversation.Outcome{}, err
	}
	return sess.engine.SubmitText(sess.ctx, input)
}

func (s *Service) SubmitChoice(_ context.Context, id, value string) (conversation.Outcome, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return conversation.Outcome{}, err
	}
	return sess.engine.SubmitChoice(sess.ctx, value)
}

func (s *Service) Snapshot(id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.snapshot(), nil
}

// Subscribe emits session events until ctx is canceled or the session is
// closed. Slow subscribers lose their oldest undelivered events.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Event, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ch, key, ok := sess.subscribe()
	if !ok {
		return nil, ErrUnknownSession
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-sess.ctx.Done():
		}
		sess.unsubscribe(key)
	}()
	return ch, nil
}

func (s *Service) Close(id string) bool {
	return s.sessions.Remove(strings.TrimSpace(id))
}

func (s *Service) Len() int {
	return s.sessions.Len()
}

// CloseAll tears down every session.
func (s *Service) CloseAll() {
	s.sessions.Purge()
}

func (s *Service) persist(id string, r report.Report) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.store.Put(ctx, id, r); err != nil {
		s.logger.Printf("session %s: persist report failed: %v", id, err)
		return
	}
	s.logger.Printf("session %s: report stored", id)
}
