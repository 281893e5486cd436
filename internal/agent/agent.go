// Package agent holds the in-memory conversation state for one model and
// the capability to extend it with a model request. One agent per
// (session, model) pair; the front end owns fan-out across models.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"nrpchat/pkg/chattypes"
)

// SystemPrompt is the fixed system message seeding every fresh conversation.
const SystemPrompt = "You are User Response, a concise, friendly support agent for the " +
	"Nautilus Research Platform. Answer the user directly, avoid meta " +
	"commentary, and only request clarification when necessary. Be brief " +
	"and actionable."

// SendFunc sends an ordered message history to a model and returns the
// reply text. The provider client supplies the production implementation.
type SendFunc func(ctx context.Context, model string, messages []chattypes.Message) (string, error)

// Recorder receives each exchange for durable transcripts. transcript.Writer
// satisfies it; tests substitute fakes.
type Recorder interface {
	Record(role, content string) error
}

// RequestError reports a failed model request. The conversation history
// keeps the user message of the failed turn but no assistant reply, so the
// user can simply re-send.
type RequestError struct {
	Model string
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("model request to %s failed: %v", e.Model, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Agent maintains one ordered conversation history and forwards it to a
// model on each turn. Calls are synchronous with one in-flight request at a
// time; the front end disables input until Send returns.
type Agent struct {
	model    string
	send     SendFunc
	history  []chattypes.Message
	recorder Recorder
	logger   *log.Logger
}

// New creates an agent for the given model. With an empty history the
// system prompt is prepended exactly once; a resumed history is trusted to
// already start with its system message, and is repaired if it does not.
// recorder may be nil when transcripts are not wanted.
func New(model string, send SendFunc, systemPrompt string, history []chattypes.Message, recorder Recorder, logger *log.Logger) *Agent {
	if len(history) == 0 || history[0].Role != chattypes.RoleSystem {
		system := chattypes.Message{
			ID:        uuid.NewString(),
			Role:      chattypes.RoleSystem,
			Content:   systemPrompt,
			Timestamp: time.Now(),
		}
		history = append([]chattypes.Message{system}, history...)
	}

	return &Agent{
		model:    model,
		send:     send,
		history:  history,
		recorder: recorder,
		logger:   logger,
	}
}

// Model returns the model id this agent talks to.
func (a *Agent) Model() string {
	return a.model
}

// History returns the current conversation history, oldest first.
func (a *Agent) History() []chattypes.Message {
	return a.history
}

// Send appends the user text, forwards the full history to the model, and
// appends the reply. On failure the history keeps the user message only and
// the error is a *RequestError wrapping the cause.
func (a *Agent) Send(ctx context.Context, text string) (string, error) {
	a.append(chattypes.RoleUser, text)
	a.record(chattypes.RoleUser, text)

	a.logger.Debug("sending chat request", "model", a.model, "history_len", len(a.history))
	reply, err := a.send(ctx, a.model, a.history)
	if err != nil {
		a.logger.Error("chat request failed", "model", a.model, "error", err)
		return "", &RequestError{Model: a.model, Err: err}
	}

	a.append(chattypes.RoleAssistant, reply)
	a.record(chattypes.RoleAssistant, reply)
	return reply, nil
}

func (a *Agent) append(role, content string) {
	a.history = append(a.history, chattypes.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// record forwards an exchange to the transcript. Transcript failures are
// logged, not returned: a full disk must not make the live conversation
// unusable, and nothing already written is affected.
func (a *Agent) record(role, content string) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(role, content); err != nil {
		a.logger.Warn("failed to record transcript entry", "model", a.model, "role", role, "error", err)
	}
}
