package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClientComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"parts": []map[string]any{{"text": "1. How did you approach it?"}},
						"role":  "model",
					},
					"finishReason": "STOP",
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewGeminiClient("gemini-2.0-flash", Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "generate questions")
	require.NoError(t, err)
	assert.Equal(t, "1. How did you approach it?", text)
	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	contents, ok := gotBody["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
}

func TestGeminiClientErrorResponses(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewGeminiClient("gemini-2.0-flash", Config{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("empty candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer server.Close()

		client, err := NewGeminiClient("gemini-2.0-flash", Config{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), "p")
		assert.ErrorIs(t, err, ErrEmptyCompletion)
	})
}

func TestNewGeminiClientRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient("gemini-2.0-flash", Config{})
	assert.Error(t, err)
}

func TestMockClientScript(t *testing.T) {
	mock := NewMockClient("first", "second")

	got, err := mock.Complete(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = mock.Complete(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	// Script exhausted: the last response repeats.
	got, err = mock.Complete(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	assert.Equal(t, 3, mock.Calls())
	assert.Equal(t, "c", mock.LastPrompt())
}
