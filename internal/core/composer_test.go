package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmind-ai/openmind-server/internal/store"
)

func TestComposeEmptyInputFailsPrecheck(t *testing.T) {
	_, err := Compose("", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = Compose("   \t\n", nil, nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestComposePlainText(t *testing.T) {
	payload, err := Compose("hi", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", payload)
}

func TestComposeWithAttachments(t *testing.T) {
	attachments := []store.Attachment{
		{Name: "a.png", URL: "http://x/a.png"},
	}
	payload, err := Compose("hi", attachments, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi\n\nAttachments:\n[a.png](http://x/a.png)", payload)
}

func TestComposeWithMultipleAttachments(t *testing.T) {
	attachments := []store.Attachment{
		{Name: "a.png", URL: "http://x/a.png"},
		{Name: "b.pdf", URL: "http://x/b.pdf"},
	}
	payload, err := Compose("hi", attachments, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi\n\nAttachments:\n[a.png](http://x/a.png)\n[b.pdf](http://x/b.pdf)", payload)
}

func TestComposeAttachmentsOnly(t *testing.T) {
	attachments := []store.Attachment{
		{Name: "a.png", URL: "http://x/a.png"},
	}
	payload, err := Compose("", attachments, nil)
	require.NoError(t, err)
	assert.Equal(t, "\n\nAttachments:\n[a.png](http://x/a.png)", payload)
}

func TestComposeWithAgent(t *testing.T) {
	agent := &store.Agent{SystemPrompt: "P"}
	payload, err := Compose("hi", nil, agent)
	require.NoError(t, err)
	assert.Equal(t, "P\n\nUser: hi", payload)
}

func TestComposeAgentPrefixAppliedAfterAttachments(t *testing.T) {
	agent := &store.Agent{SystemPrompt: "P"}
	attachments := []store.Attachment{
		{Name: "a.png", URL: "http://x/a.png"},
	}
	payload, err := Compose("hi", attachments, agent)
	require.NoError(t, err)
	assert.Equal(t, "P\n\nUser: hi\n\nAttachments:\n[a.png](http://x/a.png)", payload)
}
