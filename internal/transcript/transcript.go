package transcript

import (
	"sync"
	"time"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Kind string

const (
	KindPlainText       Kind = "plainText"
	KindAnalysisResult  Kind = "analysisResult"
	KindTreeResult      Kind = "treeResult"
	KindMatrixResult    Kind = "matrixResult"
	KindWorkplanResult  Kind = "workplanResult"
	KindSynthesisResult Kind = "synthesisResult"
)

type Style string

const (
	StylePrimary   Style = "primary"
	StyleSecondary Style = "secondary"
)

// Action is a choice offered to the user on an assistant message.
type Action struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	Style     Style  `json:"style"`
	Rationale string `json:"rationale,omitempty"`
}

type Message struct {
	ID             int64     `json:"id"`
	Speaker        Speaker   `json:"speaker"`
	Kind           Kind      `json:"kind"`
	Text           string    `json:"text"`
	Payload        any       `json:"payload,omitempty"`
	PendingActions []Action  `json:"pendingActions,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Log is an append-only message sequence. Only the newest assistant
// message may carry pending actions.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	nextID   int64
	now      func() time.Time
}

func New() *Log {
	return &Log{nextID: 1, now: time.Now}
}

// Append stores a message and returns it with its id assigned. Any new
// message retires the actions offered by earlier ones.
func (l *Log) Append(speaker Speaker, kind Kind, text string, payload any, actions ...Action) Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.clearLocked()
	if speaker != SpeakerAssistant {
		actions = nil
	}
	msg := Message{
		ID:        l.nextID,
		Speaker:   speaker,
		Kind:      kind,
		Text:      text,
		Payload:   payload,
		CreatedAt: l.now(),
	}
	if len(actions) > 0 {
		msg.PendingActions = append([]Action(nil), actions...)
	}
	l.nextID++
	l.messages = append(l.messages, msg)
	return copyMessage(msg)
}

func (l *Log) ClearPendingActions() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearLocked()
}

func (l *Log) clearLocked() {
	for i := range l.messages {
		l.messages[i].PendingActions = nil
	}
}

// Pending returns the actions offered by the newest message, if any.
func (l *Log) Pending() []Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.messages) == 0 {
		return nil
	}
	last := l.messages[len(l.messages)-1]
	return append([]Action(nil), last.PendingActions...)
}

func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	for i, m := range l.messages {
		out[i] = copyMessage(m)
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

func copyMessage(m Message) Message {
	if m.PendingActions != nil {
		m.PendingActions = append([]Action(nil), m.PendingActions...)
	}
	return m
}
