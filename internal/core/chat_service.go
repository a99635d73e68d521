package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/openmind-ai/openmind-server/internal/store"
)

const googleSearchURL = "https://www.google.com/search?q="

// DataStore is the slice of persistence the send flow needs.
type DataStore interface {
	GetCredential(userID, provider string) (*store.Credential, error)
	GetAgentByID(id, userID string) (*store.Agent, error)
	GetAttachmentsByUserID(userID string) ([]store.Attachment, error)
	ClearAttachmentsByUserID(userID string) error
}

type SendKind string

const (
	// SendKindNone means there was nothing to send; no state changed.
	SendKindNone SendKind = "none"
	// SendKindSearch routes the payload to an external web search; the
	// assistant side of the conversation is untouched.
	SendKindSearch SendKind = "search"
	// SendKindMessage is a completed LLM exchange.
	SendKindMessage SendKind = "message"
)

type SendResult struct {
	Kind             SendKind `json:"kind"`
	SearchURL        string   `json:"search_url,omitempty"`
	UserMessage      *Message `json:"user_message,omitempty"`
	AssistantMessage *Message `json:"assistant_message,omitempty"`
}

// ChatService orchestrates a send: attachment composition, agent-prompt
// injection, provider selection, credential lookup, the provider call and
// the conversation-state update.
type ChatService struct {
	dataStore       DataStore
	conversations   *ConversationRegistry
	providers       *ProviderRegistry
	defaultProvider Provider
	defaultAPIKey   string
}

func NewChatService(ds DataStore, conversations *ConversationRegistry, providers *ProviderRegistry, defaultProvider Provider, defaultAPIKey string) *ChatService {
	return &ChatService{
		dataStore:       ds,
		conversations:   conversations,
		providers:       providers,
		defaultProvider: defaultProvider,
		defaultAPIKey:   defaultAPIKey,
	}
}

func (s *ChatService) Conversation(userID string) *Conversation {
	return s.conversations.Get(userID)
}

// Send runs one exchange. The conversation's send slot is claimed for the
// duration and released on every path. On provider failure the user
// message stays appended and the error is returned to the caller.
func (s *ChatService) Send(ctx context.Context, userID, content, model, agentID string) (*SendResult, error) {
	conv := s.conversations.Get(userID)
	if err := conv.BeginSend(); err != nil {
		return nil, err
	}
	defer conv.EndSend()

	attachments, err := s.dataStore.GetAttachmentsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load staged attachments: %w", err)
	}

	var agent *store.Agent
	if agentID != "" {
		agent, err = s.dataStore.GetAgentByID(agentID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load agent: %w", err)
		}
		// A stale agent selection composes without a prefix.
	}

	payload, err := Compose(content, attachments, agent)
	if errors.Is(err, ErrEmptyMessage) {
		return &SendResult{Kind: SendKindNone}, nil
	}
	if err != nil {
		return nil, err
	}

	userMsg := Message{Role: RoleUser, Content: payload}
	conv.Append(userMsg)

	selection := strings.ToLower(strings.TrimSpace(model))
	if selection == ProviderGoogle {
		s.clearStaging(userID, attachments)
		return &SendResult{
			Kind:        SendKindSearch,
			SearchURL:   googleSearchURL + url.QueryEscape(payload),
			UserMessage: &userMsg,
		}, nil
	}

	reply, err := s.generate(ctx, userID, selection, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	assistantMsg := Message{Role: RoleAssistant, Content: reply}
	conv.Append(assistantMsg)

	s.clearStaging(userID, attachments)

	return &SendResult{
		Kind:             SendKindMessage,
		UserMessage:      &userMsg,
		AssistantMessage: &assistantMsg,
	}, nil
}

// clearStaging empties the attachment staging area once the message
// referencing it is dispatched. A failure here only leaks staged rows, it
// does not undo the exchange. On a failed send the staging area is kept
// so a retry still carries the attachments.
func (s *ChatService) clearStaging(userID string, attachments []store.Attachment) {
	if len(attachments) == 0 {
		return
	}
	if err := s.dataStore.ClearAttachmentsByUserID(userID); err != nil {
		log.Printf("Failed to clear staged attachments for user %s: %v", userID, err)
	}
}

// generate resolves a credential for the selection and calls the matching
// provider. Any selection that does not resolve to a usable credential
// degrades to the built-in default backend with the embedded key.
func (s *ChatService) generate(ctx context.Context, userID, selection, payload string) (string, error) {
	if provider, ok := s.providers.Lookup(selection); ok {
		cred, err := s.dataStore.GetCredential(userID, selection)
		if err != nil {
			// Treated like a missing credential: the lookup is advisory
			// and the default backend can still serve the request.
			log.Printf("Credential lookup failed for user %s provider %s: %v", userID, selection, err)
		}
		if cred != nil {
			return provider.Generate(ctx, cred.APIKey, payload)
		}
	}

	if s.defaultAPIKey == "" {
		return "", ErrMissingAPIKey
	}
	return s.defaultProvider.Generate(ctx, s.defaultAPIKey, payload)
}
