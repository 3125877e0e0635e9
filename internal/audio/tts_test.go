package audio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleTTSClientSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text:synthesize", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is the capital of France?", req.Input.Text)
		assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)

		json.NewEncoder(w).Encode(synthesizeResponse{
			AudioContent: base64.StdEncoding.EncodeToString([]byte("mp3 bytes")),
		})
	}))
	defer server.Close()

	client := NewGoogleTTSClientWithBaseURL(server.URL)
	audio, err := client.Synthesize(context.Background(), "what is the capital of France?", "test-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3 bytes"), audio)
}

func TestGoogleTTSClientRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewGoogleTTSClientWithBaseURL(server.URL)
	_, err := client.Synthesize(context.Background(), "text", "key")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestGoogleTTSClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid voice", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewGoogleTTSClientWithBaseURL(server.URL)
	_, err := client.Synthesize(context.Background(), "text", "key")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "400")
}
