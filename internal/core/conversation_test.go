package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendPreservesInsertionOrder(t *testing.T) {
	conv := NewConversation()

	const pairs = 5
	for i := 0; i < pairs; i++ {
		conv.Append(Message{Role: RoleUser, Content: fmt.Sprintf("question %d", i)})
		conv.Append(Message{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", i)})
	}

	messages := conv.Messages()
	require.Len(t, messages, pairs*2)
	for i := 0; i < pairs; i++ {
		assert.Equal(t, RoleUser, messages[2*i].Role)
		assert.Equal(t, fmt.Sprintf("question %d", i), messages[2*i].Content)
		assert.Equal(t, RoleAssistant, messages[2*i+1].Role)
		assert.Equal(t, fmt.Sprintf("answer %d", i), messages[2*i+1].Content)
	}
}

func TestConversationMessagesReturnsCopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(Message{Role: RoleUser, Content: "hi"})

	messages := conv.Messages()
	messages[0].Content = "mutated"

	assert.Equal(t, "hi", conv.Messages()[0].Content)
}

func TestConversationBusyFlag(t *testing.T) {
	conv := NewConversation()
	assert.False(t, conv.IsSending())

	require.NoError(t, conv.BeginSend())
	assert.True(t, conv.IsSending())

	conv.EndSend()
	assert.False(t, conv.IsSending())
}

func TestConversationRejectsConcurrentSend(t *testing.T) {
	conv := NewConversation()

	require.NoError(t, conv.BeginSend())
	assert.ErrorIs(t, conv.BeginSend(), ErrSendInFlight)

	conv.EndSend()
	assert.NoError(t, conv.BeginSend())
	conv.EndSend()
}

func TestConversationRegistryReturnsSameConversationPerUser(t *testing.T) {
	registry := NewConversationRegistry()

	a := registry.Get("user-a")
	b := registry.Get("user-b")
	assert.NotSame(t, a, b)

	a.Append(Message{Role: RoleUser, Content: "hi"})
	assert.Len(t, registry.Get("user-a").Messages(), 1)
	assert.Empty(t, registry.Get("user-b").Messages())
}
