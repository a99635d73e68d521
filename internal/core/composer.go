package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openmind-ai/openmind-server/internal/store"
)

// ErrEmptyMessage is returned when there is nothing to send: no text and
// no staged attachments. The caller treats it as a silent no-op.
var ErrEmptyMessage = errors.New("message is empty")

// Compose builds the outbound payload from raw input, staged attachments
// and an optional agent. Attachments are serialized as a markdown link
// block; the agent's system prompt, when present, prefixes the whole
// payload. Pure construction: clearing the input and the staging area is
// the caller's responsibility.
func Compose(raw string, attachments []store.Attachment, agent *store.Agent) (string, error) {
	if strings.TrimSpace(raw) == "" && len(attachments) == 0 {
		return "", ErrEmptyMessage
	}

	payload := raw
	if len(attachments) > 0 {
		links := make([]string, 0, len(attachments))
		for _, att := range attachments {
			links = append(links, fmt.Sprintf("[%s](%s)", att.Name, att.URL))
		}
		payload = payload + "\n\nAttachments:\n" + strings.Join(links, "\n")
	}

	// Agent prefixing is applied last, after attachment composition.
	if agent != nil {
		payload = agent.SystemPrompt + "\n\nUser: " + payload
	}

	return payload, nil
}
