package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/pkg/types"
)

func fakeChatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIDescriber_Describe(t *testing.T) {
	srv := fakeChatServer(t, "Parses a Go file into symbols.")

	d, err := NewOpenAIDescriber("sk-test", "", srv.URL)
	require.NoError(t, err)

	desc, err := d.Describe(context.Background(), &types.Chunk{
		FilePath:   "parser.go",
		SymbolName: "ParseFile",
		Content:    "func ParseFile(path string) error { return nil }",
	})
	require.NoError(t, err)
	assert.Equal(t, "Parses a Go file into symbols.", desc)
}

func TestOpenAIDescriber_Summarize(t *testing.T) {
	srv := fakeChatServer(t, "Utilities for parsing source files.")

	d, err := NewOpenAIDescriber("sk-test", "", srv.URL)
	require.NoError(t, err)

	summary, err := d.Summarize(context.Background(), []*types.Chunk{
		{FilePath: "parser.go", SymbolName: "ParseFile", Content: "func ParseFile() {}"},
		{FilePath: "parser.go", SymbolName: "ParseDir", Content: "func ParseDir() {}"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Utilities for parsing source files.", summary)
}

func TestOpenAIDescriber_EmptyChunk(t *testing.T) {
	d, err := NewOpenAIDescriber("sk-test", "", "")
	require.NoError(t, err)

	_, err = d.Describe(context.Background(), &types.Chunk{})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestOpenAIDescriber_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d, err := NewOpenAIDescriber("sk-test", "", srv.URL)
	require.NoError(t, err)

	_, err = d.Describe(context.Background(), &types.Chunk{FilePath: "a.go", Content: "x"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestNewOpenAIDescriber_RequiresKey(t *testing.T) {
	_, err := NewOpenAIDescriber("", "", "")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestDisabled(t *testing.T) {
	var d Disabled
	assert.False(t, d.Enabled())

	_, err := d.Describe(context.Background(), &types.Chunk{Content: "x"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = d.Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrDisabled)
}
