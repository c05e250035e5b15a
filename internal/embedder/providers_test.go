package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllama(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/api/embed", r.URL.Path)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = []float32{float32(i), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": embeddings})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOllama(t, &calls)

	emb, err := NewOllamaProvider(srv.URL, "test-model", nil)
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	vectors, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1, 0}, vectors[0])
	assert.Equal(t, []float32{1, 1, 0}, vectors[1])
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaProvider_CacheSkipsAPI(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOllama(t, &calls)

	emb, err := NewOllamaProvider(srv.URL, "test-model", NewCache(100))
	require.NoError(t, err)

	ctx := context.Background()
	first, err := emb.Embed(ctx, "cached text")
	require.NoError(t, err)
	second, err := emb.Embed(ctx, "cached text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "second call served from cache")
}

func TestOllamaProvider_ServerErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	emb, err := NewOllamaProvider(srv.URL, "missing", nil)
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOllamaProvider_Defaults(t *testing.T) {
	t.Setenv(EnvOllamaHost, "")
	emb, err := NewOllamaProvider("", "", nil)
	require.NoError(t, err)

	assert.Equal(t, defaultOllamaURL, emb.baseURL)
	assert.Equal(t, DefaultOllamaModel, emb.Model())
	assert.Equal(t, OllamaDimension, emb.Dimension())
}
