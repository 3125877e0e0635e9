package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRateLimited marks a synthesis failure caused by API quota exhaustion;
// the sweeper rotates to the next key when it sees this.
var ErrRateLimited = errors.New("tts api rate limited")

// TTSClient synthesizes speech for a question prompt.
type TTSClient interface {
	Synthesize(ctx context.Context, text, apiKey string) ([]byte, error)
}

const defaultTTSBaseURL = "https://texttospeech.googleapis.com"

// GoogleTTSClient calls the Google Cloud text-to-speech REST API and
// returns MP3 bytes.
type GoogleTTSClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewGoogleTTSClient() *GoogleTTSClient {
	return &GoogleTTSClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultTTSBaseURL,
	}
}

// NewGoogleTTSClientWithBaseURL is used by tests to point at a stub server.
func NewGoogleTTSClientWithBaseURL(baseURL string) *GoogleTTSClient {
	c := NewGoogleTTSClient()
	c.baseURL = baseURL
	return c
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (c *GoogleTTSClient) Synthesize(ctx context.Context, text, apiKey string) ([]byte, error) {
	var reqBody synthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = "en-US"
	reqBody.Voice.Name = "en-US-Neural2-C"
	reqBody.AudioConfig.AudioEncoding = "MP3"

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesize request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text:synthesize?key=%s", c.baseURL, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts api error %d: %s", resp.StatusCode, errBody)
	}

	var respBody synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode synthesize response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(respBody.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	return audio, nil
}
