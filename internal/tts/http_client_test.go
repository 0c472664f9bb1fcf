// Package tts_test tests the speech synthesis backends.
package tts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/audiobook-service/internal/core"
	"github.com/book-expert/audiobook-service/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	wavPayload := []byte("RIFF fake wav payload")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/generate/speech", r.URL.Path)

		var request map[string]any

		err := json.NewDecoder(r.Body).Decode(&request)
		require.NoError(t, err)
		assert.Equal(t, "Hello there.", request["text"])
		assert.Equal(t, "narrator", request["voice"])
		assert.Equal(t, "en", request["language"])

		w.Header().Set("Content-Type", "audio/wav")

		_, err = w.Write(wavPayload)
		require.NoError(t, err)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, testTimeout)

	audioData, err := client.Synthesize(
		context.Background(),
		"Hello there.",
		"narrator",
		core.SynthesisParams{Language: "en", Temperature: 0.7},
	)
	require.NoError(t, err)
	assert.Equal(t, wavPayload, audioData)
}

func TestSynthesize_EmptyTextRejected(t *testing.T) {
	t.Parallel()

	client := tts.NewHTTPClient("http://localhost:1", testTimeout)

	_, err := client.Synthesize(context.Background(), "", "narrator", core.SynthesisParams{})
	require.ErrorIs(t, err, tts.ErrTextEmpty)
}

func TestSynthesize_EmptyVoiceRejected(t *testing.T) {
	t.Parallel()

	client := tts.NewHTTPClient("http://localhost:1", testTimeout)

	_, err := client.Synthesize(context.Background(), "text", "", core.SynthesisParams{})
	require.ErrorIs(t, err, tts.ErrVoiceEmpty)
}

func TestSynthesize_ServiceErrorDetail(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)

		_, err := w.Write([]byte(`{"detail":"unknown voice","error_code":"VOICE_NOT_FOUND"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), "text", "ghost", core.SynthesisParams{})
	require.ErrorIs(t, err, tts.ErrUnexpectedResponse)
	assert.Contains(t, err.Error(), "unknown voice")
	assert.Contains(t, err.Error(), "VOICE_NOT_FOUND")
}

func TestSynthesize_WrongContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		_, err := w.Write([]byte("not audio"))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), "text", "narrator", core.SynthesisParams{})
	require.ErrorIs(t, err, tts.ErrUnexpectedResponse)
}

func TestSynthesize_EmptyAudioRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), "text", "narrator", core.SynthesisParams{})
	require.ErrorIs(t, err, tts.ErrEmptyAudio)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)

			return
		}

		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, testTimeout)
	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := tts.NewHTTPClient(server.URL, testTimeout)

	err := client.HealthCheck(context.Background())
	require.ErrorIs(t, err, tts.ErrServiceUnhealthy)
}
