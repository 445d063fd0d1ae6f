package llamaengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptd/internal/engine"
)

func TestPromptArgs(t *testing.T) {
	prompt, p, err := promptArgs([]any{"hello", map[string]any{"max_tokens": 16.0, "temperature": 0.5, "stop": []any{"\n"}}})
	require.NoError(t, err)
	assert.Equal(t, "hello", prompt)
	assert.Equal(t, 16, p.MaxTokens)
	assert.InDelta(t, 0.5, p.Temperature, 1e-6)
	assert.Equal(t, []string{"\n"}, p.Stop)

	_, _, err = promptArgs(nil)
	assert.Error(t, err)
	_, _, err = promptArgs([]any{42})
	assert.Error(t, err)
	_, _, err = promptArgs([]any{"x", map[string]any{"max_tokens": 1.5}})
	assert.Error(t, err)
}

func TestEntryKind(t *testing.T) {
	k, err := entryKind("invoke")
	require.NoError(t, err)
	assert.Equal(t, EntryPredict, k)
	k, err = entryKind(EntryEmbeddings)
	require.NoError(t, err)
	assert.Equal(t, EntryEmbeddings, k)
	_, err = entryKind("train")
	assert.ErrorIs(t, err, engine.ErrEntryNotFound)
}
