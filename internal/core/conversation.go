package core

import (
	"errors"
	"sync"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation. Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrSendInFlight is returned when a send is attempted while another one
// is still running for the same conversation.
var ErrSendInFlight = errors.New("a send is already in flight")

// Conversation is the in-memory, append-only message log for one user
// session. The busy flag is a real single-slot guard: a second send while
// one is in flight is rejected instead of racing.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
	sending  bool
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the log in insertion order.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// BeginSend claims the single send slot.
func (c *Conversation) BeginSend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sending {
		return ErrSendInFlight
	}
	c.sending = true
	return nil
}

// EndSend releases the send slot. Safe to call from a defer regardless of
// how the send finished.
func (c *Conversation) EndSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
}

func (c *Conversation) IsSending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// ConversationRegistry hands out one conversation per user. Conversations
// live for the lifetime of the process; nothing is persisted.
type ConversationRegistry struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
}

func NewConversationRegistry() *ConversationRegistry {
	return &ConversationRegistry{conversations: make(map[string]*Conversation)}
}

func (r *ConversationRegistry) Get(userID string) *Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[userID]
	if !ok {
		conv = NewConversation()
		r.conversations[userID] = conv
	}
	return conv
}
