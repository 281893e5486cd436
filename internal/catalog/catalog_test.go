package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nrpchat/pkg/chattypes"
)

func TestLoad(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cat.All())
}

func TestCatalog_Lookup(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	entry, ok := cat.Lookup("gemma3")
	require.True(t, ok)
	assert.Equal(t, chattypes.ModelStatusMain, entry.Status)
	assert.Equal(t, "google/gemma-3-27b-it", entry.Title)
	assert.Equal(t, "27B", entry.Parameters)
	assert.Equal(t, 131072, entry.ContextTokens)

	_, ok = cat.Lookup("no-such-model")
	assert.False(t, ok)
}

func TestCatalog_EntriesHaveIDAndStatus(t *testing.T) {
	cat, err := Load()
	require.NoError(t, err)

	for _, entry := range cat.All() {
		assert.NotEmpty(t, entry.ID)
		assert.Contains(t, []string{
			chattypes.ModelStatusMain,
			chattypes.ModelStatusEval,
			chattypes.ModelStatusDeprecated,
		}, entry.Status, "entry %s", entry.ID)
	}
}

func TestStatusRank(t *testing.T) {
	assert.Less(t, StatusRank(chattypes.ModelStatusMain), StatusRank(chattypes.ModelStatusEval))
	assert.Less(t, StatusRank(chattypes.ModelStatusEval), StatusRank(chattypes.ModelStatusDeprecated))
	assert.Less(t, StatusRank(chattypes.ModelStatusDeprecated), StatusRank(""))
}
