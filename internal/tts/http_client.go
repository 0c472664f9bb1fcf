// Package tts provides the text-to-speech backends the audiobook compiler can
// synthesize narration with: a standalone TTS HTTP service and a local
// chatllm binary.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/audiobook-service/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
)

// Static errors.
var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrVoiceEmpty         = errors.New("voice cannot be empty")
	ErrEmptyAudio         = errors.New("received empty audio data")
	ErrServiceUnhealthy   = errors.New("TTS service is not healthy")
	ErrUnexpectedResponse = errors.New("unexpected TTS service response")
)

// Error message formats.
const (
	errFmtUnexpectedContentType = "%w: expected audio/wav, got %s"
	errFmtServiceErrorWithCode  = "%w: %s (code: %s)"
	errFmtServiceNonOKStatus    = "%w: status %s, body: %s"
)

// HTTPClient is a client for the standalone TTS HTTP service. It implements
// core.Synthesizer.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// speechRequest is the JSON payload for speech generation requests.
type speechRequest struct {
	// Text contains the narration text to convert to speech.
	Text string `json:"text"`

	// Voice selects the speaker voice registered with the service.
	Voice string `json:"voice"`

	// Language specifies the target language code (e.g., "en").
	Language string `json:"language"`

	// Temperature controls randomness in speech generation.
	Temperature float64 `json:"temperature"`
}

// serviceError is a structured error response from the TTS service.
type serviceError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates an HTTP client for the TTS service. The baseURL
// should include protocol and port (e.g., "http://localhost:8000"); the
// timeout applies to every request.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends one generation request and returns the WAV audio bytes.
func (c *HTTPClient) Synthesize(
	ctx context.Context,
	text, voice string,
	params core.SynthesisParams,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	if voice == "" {
		return nil, ErrVoiceEmpty
	}

	request := speechRequest{
		Text:        text,
		Voice:       voice,
		Language:    params.Language,
		Temperature: params.Temperature,
	}

	if request.Temperature == 0 {
		request.Temperature = defaultTemperature
	}

	if request.Language == "" {
		request.Language = defaultLanguage
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiGenerateSpeech,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(errFmtUnexpectedContentType, ErrUnexpectedResponse, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the TTS service is running. Compile jobs call it
// before synthesis batches to fail fast when the backend is down.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned %s", ErrServiceUnhealthy, resp.Status)
	}

	return nil
}

// parseErrorResponse extracts a structured error from a non-OK response,
// falling back to the raw body.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf(errFmtServiceNonOKStatus, ErrUnexpectedResponse, resp.Status, "<unreadable>")
	}

	var svcErr serviceError

	unmarshalErr := json.Unmarshal(body, &svcErr)
	if unmarshalErr == nil && svcErr.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode, ErrUnexpectedResponse, svcErr.Detail, svcErr.ErrorCode)
	}

	return fmt.Errorf(errFmtServiceNonOKStatus, ErrUnexpectedResponse, resp.Status, string(body))
}
