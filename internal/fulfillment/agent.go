// Package fulfillment adapts Dialogflow webhook calls to intent handlers.
//
// A Handler decodes the WebhookRequest, resolves the matched intent to a
// HandlerFunc, lets it append sentences to the Agent and encodes the
// collected sentences as a WebhookResponse.
package fulfillment

import (
	"context"
	"fmt"
	"strings"
)

// HandlerFunc handles one matched intent by adding sentences to the agent.
type HandlerFunc func(ctx context.Context, agent *Agent) error

// Resolver maps an intent display name to its handler.
type Resolver interface {
	Resolve(intent string) (HandlerFunc, bool)
}

// Intents is a Resolver backed by a map of display name to handler.
type Intents map[string]HandlerFunc

func (m Intents) Resolve(intent string) (HandlerFunc, bool) {
	fn, ok := m[intent]
	return fn, ok
}

// Agent is the per-request fulfillment context. It is not safe for
// concurrent use; a handler owns it for the duration of the request.
type Agent struct {
	Intent       string
	Parameters   map[string]any
	Session      string
	QueryText    string
	LanguageCode string

	messages []string
}

// Parameter returns the named parameter as text, or "" when absent.
func (a *Agent) Parameter(name string) string {
	v, ok := a.Parameters[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Add appends a sentence to the reply. Sentences are emitted in call order.
func (a *Agent) Add(sentence string) {
	a.messages = append(a.messages, sentence)
}

// Messages returns a copy of the sentences added so far.
func (a *Agent) Messages() []string {
	out := make([]string, len(a.messages))
	copy(out, a.messages)
	return out
}

// Text is the full reply, sentences concatenated without separator.
func (a *Agent) Text() string {
	return strings.Join(a.messages, "")
}
