package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nrpchat/internal/catalog"
	"nrpchat/internal/logger"
	"nrpchat/pkg/chattypes"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cat, err := catalog.Load()
	require.NoError(t, err)
	return New("test-key", server.URL, cat, logger.Discard())
}

func TestChatCompletion_Success(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gemma3",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}
			]
		}`))
	})

	reply, err := cl.ChatCompletion(t.Context(), "gemma3", []chattypes.Message{
		{Role: chattypes.RoleSystem, Content: "be helpful"},
		{Role: chattypes.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestChatCompletion_NoChoices(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gemma3", "choices": []}`))
	})

	_, err := cl.ChatCompletion(t.Context(), "gemma3", []chattypes.Message{{Role: chattypes.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response choices")
}

func TestChatCompletion_EmptyContent(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gemma3",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ""}, "finish_reason": "stop"}]
		}`))
	})

	_, err := cl.ChatCompletion(t.Context(), "gemma3", []chattypes.Message{{Role: chattypes.RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response content")
}

func TestListModels_MergesCatalogAndSorts(t *testing.T) {
	cl := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"id": "mystery", "object": "model", "created": 1700000000, "owned_by": "nrp"},
				{"id": "llama3-sdsc", "object": "model", "created": 1700000000, "owned_by": "nrp"},
				{"id": "gemma3", "object": "model", "created": 1700000000, "owned_by": "nrp"}
			]
		}`))
	})

	infos, err := cl.ListModels(t.Context())
	require.NoError(t, err)
	require.Len(t, infos, 3)

	// main < dep < unknown; catalog metadata attached where known.
	assert.Equal(t, "gemma3", infos[0].ID)
	assert.Equal(t, "google/gemma-3-27b-it", infos[0].Title)
	assert.Equal(t, "llama3-sdsc", infos[1].ID)
	assert.Equal(t, chattypes.ModelStatusDeprecated, infos[1].Status)
	assert.Equal(t, "mystery", infos[2].ID)
	assert.Empty(t, infos[2].Status)
	assert.False(t, infos[0].Created.IsZero())
}

func TestConvertMessages(t *testing.T) {
	messages := []chattypes.Message{
		{Role: chattypes.RoleSystem, Content: "be helpful"},
		{Role: chattypes.RoleUser, Content: "hello"},
		{Role: chattypes.RoleAssistant, Content: "hi"},
		{Role: "tool", Content: "ignored"},
	}

	params := convertMessages(messages)
	// Unknown roles are dropped; order is preserved.
	require.Len(t, params, 3)
	assert.NotNil(t, params[0].OfSystem)
	assert.NotNil(t, params[1].OfUser)
	assert.NotNil(t, params[2].OfAssistant)
}

func TestSortModels(t *testing.T) {
	infos := []chattypes.ModelInfo{
		{ID: "zeta", ModelCatalogEntry: chattypes.ModelCatalogEntry{Status: chattypes.ModelStatusEval}},
		{ID: "unknown-model"},
		{ID: "llama3-sdsc", ModelCatalogEntry: chattypes.ModelCatalogEntry{Status: chattypes.ModelStatusDeprecated}},
		{ID: "qwen3", ModelCatalogEntry: chattypes.ModelCatalogEntry{Status: chattypes.ModelStatusMain}},
		{ID: "alpha", ModelCatalogEntry: chattypes.ModelCatalogEntry{Status: chattypes.ModelStatusEval}},
		{ID: "gemma3", ModelCatalogEntry: chattypes.ModelCatalogEntry{Status: chattypes.ModelStatusMain}},
	}

	SortModels(infos)

	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	assert.Equal(t, []string{"gemma3", "qwen3", "alpha", "zeta", "llama3-sdsc", "unknown-model"}, ids)
}

func TestModelInfo_CreatedFromListing(t *testing.T) {
	created := time.Unix(1700000000, 0)
	info := chattypes.ModelInfo{ID: "gemma3", Created: created}
	assert.Equal(t, created, info.Created)
	assert.Empty(t, info.Status)
}
