package tui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nrpchat/internal/logger"
	"nrpchat/internal/session"
	"nrpchat/pkg/chattypes"
)

func testStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	return store
}

func TestModelLabel(t *testing.T) {
	info := chattypes.ModelInfo{
		ID:      "gemma3",
		Created: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ModelCatalogEntry: chattypes.ModelCatalogEntry{
			Status:        chattypes.ModelStatusMain,
			Parameters:    "27B",
			ContextTokens: 131072,
		},
	}
	assert.Equal(t, "gemma3 [main] 27B ctx 131072 2024-06-01", modelLabel(info))

	bare := chattypes.ModelInfo{ID: "mystery"}
	assert.Equal(t, "mystery", modelLabel(bare))
}

func TestChatPanel_WriteCapsLines(t *testing.T) {
	panel := &chatPanel{}
	for i := 0; i < maxPanelLines+50; i++ {
		panel.write(fmt.Sprintf("line %d", i))
	}
	require.Len(t, panel.lines, maxPanelLines)
	assert.Equal(t, fmt.Sprintf("line %d", maxPanelLines+49), panel.lines[len(panel.lines)-1])
}

func TestChatModel_HandleSendResult(t *testing.T) {
	store := testStore(t)
	sess, err := store.Create("demo")
	require.NoError(t, err)

	m := newChatModel(store, nil, sess, false, logger.Discard())
	m.panels["gemma3"] = &chatPanel{status: statusWaiting}
	m.pending = 1

	m.handleSendResult(sendResultMsg{model: "gemma3", reply: "hello there"})
	assert.Equal(t, 0, m.pending)
	assert.Equal(t, statusOK, m.panels["gemma3"].status)
	require.NotEmpty(t, m.panels["gemma3"].lines)
	assert.Contains(t, m.panels["gemma3"].lines[len(m.panels["gemma3"].lines)-1], "hello there")
}

func TestChatModel_HandleSendResultError(t *testing.T) {
	store := testStore(t)
	sess, err := store.Create("demo")
	require.NoError(t, err)

	m := newChatModel(store, nil, sess, false, logger.Discard())
	m.panels["gemma3"] = &chatPanel{status: statusWaiting}
	m.pending = 1

	m.handleSendResult(sendResultMsg{model: "gemma3", err: errors.New("boom")})
	assert.Equal(t, statusError, m.panels["gemma3"].status)
	assert.Contains(t, m.panels["gemma3"].lines[len(m.panels["gemma3"].lines)-1], "failed")
}

func TestChatModel_HandleSendResultForRemovedModel(t *testing.T) {
	store := testStore(t)
	sess, err := store.Create("demo")
	require.NoError(t, err)

	m := newChatModel(store, nil, sess, false, logger.Discard())
	m.pending = 1

	// A result arriving after its panel was deselected is dropped quietly.
	m.handleSendResult(sendResultMsg{model: "gone", reply: "late"})
	assert.Equal(t, 0, m.pending)
}

func TestSelectModel_Navigation(t *testing.T) {
	store := testStore(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.CreateAt(fmt.Sprintf("s%d", i), "", base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	m := newSelectModel(store)
	require.Len(t, m.sessions, 3)
	assert.Equal(t, 0, m.cursor)

	m.cursor = 2
	deleted, _ := m.deleteSelected()
	assert.Len(t, deleted.sessions, 2)
	assert.Contains(t, deleted.status, "Deleted session")
	assert.Less(t, deleted.cursor, len(deleted.sessions))
}

func TestSelectModel_DeleteWithoutSelection(t *testing.T) {
	m := newSelectModel(testStore(t))
	m.cursor = -1
	updated, _ := m.deleteSelected()
	assert.Equal(t, "Select a session to delete.", updated.status)
}
