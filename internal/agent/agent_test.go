package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nrpchat/internal/logger"
	"nrpchat/pkg/chattypes"
)

// fakeRecorder captures transcript calls for assertions.
type fakeRecorder struct {
	records [][2]string
	err     error
}

func (f *fakeRecorder) Record(role, content string) error {
	f.records = append(f.records, [2]string{role, content})
	return f.err
}

func echoSend(_ context.Context, model string, messages []chattypes.Message) (string, error) {
	last := messages[len(messages)-1]
	return fmt.Sprintf("%s echoes: %s", model, last.Content), nil
}

func failSend(_ context.Context, _ string, _ []chattypes.Message) (string, error) {
	return "", errors.New("simulated timeout")
}

func TestNew_FreshHistoryGetsSystemPrompt(t *testing.T) {
	ag := New("gemma3", echoSend, SystemPrompt, nil, nil, logger.Discard())

	history := ag.History()
	require.Len(t, history, 1)
	assert.Equal(t, chattypes.RoleSystem, history[0].Role)
	assert.Equal(t, SystemPrompt, history[0].Content)
}

func TestNew_ResumedHistoryKeepsSingleSystemPrompt(t *testing.T) {
	resumed := []chattypes.Message{
		{Role: chattypes.RoleSystem, Content: SystemPrompt, Timestamp: time.Now()},
		{Role: chattypes.RoleUser, Content: "hello"},
		{Role: chattypes.RoleAssistant, Content: "hi there"},
	}

	ag := New("gemma3", echoSend, SystemPrompt, resumed, nil, logger.Discard())

	history := ag.History()
	require.Len(t, history, 3)
	systemCount := 0
	for _, msg := range history {
		if msg.Role == chattypes.RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
	assert.Equal(t, chattypes.RoleSystem, history[0].Role)
}

func TestNew_RepairsHistoryMissingSystemPrompt(t *testing.T) {
	// A resumed history that lost its system message (for example because
	// every early record was malformed) is repaired, not duplicated.
	resumed := []chattypes.Message{
		{Role: chattypes.RoleUser, Content: "hello"},
		{Role: chattypes.RoleAssistant, Content: "hi there"},
	}

	ag := New("gemma3", echoSend, SystemPrompt, resumed, nil, logger.Discard())

	history := ag.History()
	require.Len(t, history, 3)
	assert.Equal(t, chattypes.RoleSystem, history[0].Role)
	assert.Equal(t, "hello", history[1].Content)
}

func TestSend_SuccessGrowsHistoryByTwo(t *testing.T) {
	recorder := &fakeRecorder{}
	ag := New("gemma3", echoSend, SystemPrompt, nil, recorder, logger.Discard())

	reply, err := ag.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "gemma3 echoes: hello", reply)

	history := ag.History()
	require.Len(t, history, 3)
	assert.Equal(t, chattypes.RoleSystem, history[0].Role)
	assert.Equal(t, chattypes.RoleUser, history[1].Role)
	assert.Equal(t, "hello", history[1].Content)
	assert.Equal(t, chattypes.RoleAssistant, history[2].Role)
	assert.Equal(t, reply, history[2].Content)

	// Both sides of the exchange hit the transcript.
	require.Len(t, recorder.records, 2)
	assert.Equal(t, chattypes.RoleUser, recorder.records[0][0])
	assert.Equal(t, chattypes.RoleAssistant, recorder.records[1][0])
}

func TestSend_FailureGrowsHistoryByOne(t *testing.T) {
	recorder := &fakeRecorder{}
	ag := New("gemma3", failSend, SystemPrompt, nil, recorder, logger.Discard())

	_, err := ag.Send(context.Background(), "hi")
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "gemma3", reqErr.Model)
	assert.EqualError(t, reqErr.Err, "simulated timeout")

	// The failed turn keeps the user message and records no assistant reply.
	history := ag.History()
	require.Len(t, history, 2)
	assert.Equal(t, chattypes.RoleSystem, history[0].Role)
	assert.Equal(t, chattypes.RoleUser, history[1].Role)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, chattypes.RoleUser, recorder.records[0][0])
}

func TestSend_HistoryGrowthAcrossMixedTurns(t *testing.T) {
	failing := false
	send := func(ctx context.Context, model string, messages []chattypes.Message) (string, error) {
		if failing {
			return "", errors.New("unavailable")
		}
		return echoSend(ctx, model, messages)
	}

	ag := New("gemma3", send, SystemPrompt, nil, nil, logger.Discard())

	_, err := ag.Send(context.Background(), "one")
	require.NoError(t, err)
	assert.Len(t, ag.History(), 3)

	failing = true
	_, err = ag.Send(context.Background(), "two")
	require.Error(t, err)
	assert.Len(t, ag.History(), 4)

	failing = false
	_, err = ag.Send(context.Background(), "three")
	require.NoError(t, err)
	assert.Len(t, ag.History(), 6)
}

func TestSend_RecorderFailureDoesNotFailTurn(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("disk full")}
	ag := New("gemma3", echoSend, SystemPrompt, nil, recorder, logger.Discard())

	reply, err := ag.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	assert.Len(t, ag.History(), 3)
}

func TestSend_FullHistoryIsForwarded(t *testing.T) {
	var seen []chattypes.Message
	send := func(_ context.Context, _ string, messages []chattypes.Message) (string, error) {
		seen = append([]chattypes.Message{}, messages...)
		return "ok", nil
	}

	ag := New("gemma3", send, SystemPrompt, nil, nil, logger.Discard())
	_, err := ag.Send(context.Background(), "first")
	require.NoError(t, err)
	_, err = ag.Send(context.Background(), "second")
	require.NoError(t, err)

	// The second request carries system + first exchange + new user message.
	require.Len(t, seen, 4)
	assert.Equal(t, chattypes.RoleSystem, seen[0].Role)
	assert.Equal(t, "first", seen[1].Content)
	assert.Equal(t, "ok", seen[2].Content)
	assert.Equal(t, "second", seen[3].Content)
}
