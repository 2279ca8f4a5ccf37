package chat

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Storage keys for chat state. Kept stable across releases so an upgraded
// service still finds the operator's history.
const (
	HistoryKey      = "pcb-chat-history"
	VoiceEnabledKey = "pcb-chat-voice-enabled"
)

// Role of a transcript message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the chat transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the persistence the transcript needs: a flat string KV.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Transcript is the persisted conversation plus the voice toggle. All
// methods are safe for concurrent use; every mutation is written through to
// the store immediately, mirroring how the dashboard persists on each
// change.
type Transcript struct {
	mu       sync.Mutex
	store    Store
	logger   *slog.Logger
	messages []Message
	voice    bool
}

// NewTranscript loads existing chat state from the store. Missing or
// corrupt data falls back silently to an empty transcript with voice off.
func NewTranscript(store Store, logger *slog.Logger) *Transcript {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transcript{store: store, logger: logger}
	t.load()
	return t
}

func (t *Transcript) load() {
	if raw, ok, err := t.store.Get(HistoryKey); err == nil && ok {
		var messages []Message
		if jsonErr := json.Unmarshal([]byte(raw), &messages); jsonErr == nil {
			t.messages = messages
		} else {
			t.logger.Warn("chat history unreadable, starting fresh", "error", jsonErr)
		}
	}
	if raw, ok, err := t.store.Get(VoiceEnabledKey); err == nil && ok {
		t.voice = raw == "true"
	}
}

// Ask records the user's question, produces the assistant's answer from the
// metrics context, records that too, and returns it.
func (t *Transcript) Ask(question string, ctx MetricsContext) Message {
	answer := Respond(question, ctx)
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages,
		Message{ID: uuid.NewString(), Role: RoleUser, Content: question, Timestamp: now},
	)
	reply := Message{ID: uuid.NewString(), Role: RoleAssistant, Content: answer, Timestamp: now}
	t.messages = append(t.messages, reply)
	t.persistLocked()
	return reply
}

// Messages returns a copy of the transcript in order.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Clear wipes the transcript.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
	t.persistLocked()
}

// VoiceEnabled reports the voice toggle.
func (t *Transcript) VoiceEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.voice
}

// SetVoiceEnabled flips the voice toggle and persists it.
func (t *Transcript) SetVoiceEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voice = enabled
	value := "false"
	if enabled {
		value = "true"
	}
	if err := t.store.Set(VoiceEnabledKey, value); err != nil {
		t.logger.Warn("voice preference not saved", "error", err)
	}
}

func (t *Transcript) persistLocked() {
	raw, err := json.Marshal(t.messages)
	if err != nil {
		t.logger.Warn("chat history encode failed", "error", err)
		return
	}
	if err := t.store.Set(HistoryKey, string(raw)); err != nil {
		t.logger.Warn("chat history not saved", "error", err)
	}
}
