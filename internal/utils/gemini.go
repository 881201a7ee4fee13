package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// DefaultGeminiEndpoint base URL of the generative language API
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// ErrGeminiNoKey client built without an API key
var ErrGeminiNoKey = errors.New("GEMINI_API_KEY is not set")

type geminiRequest struct {
	Contents         []geminiContent       `json:"contents"`
	GenerationConfig *geminiGenerationConf `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConf struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiError non-2xx answer or an error object in the body
type GeminiError struct {
	StatusCode int
	Message    string
}

func (e *GeminiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini api error: status %d: %s", e.StatusCode, e.Message)
}

// GeminiClient generateContent calls for one model
type GeminiClient struct {
	APIKey   string
	Model    string
	Endpoint string
	HTTP     *http.Client
}

// NewGeminiClient client against the public endpoint
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		APIKey:   apiKey,
		Model:    model,
		Endpoint: DefaultGeminiEndpoint,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate sends one prompt and returns the first candidate's text.
// With jsonOutput the model is asked for an application/json answer.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, jsonOutput bool) (string, error) {
	if g.APIKey == "" {
		return "", ErrGeminiNoKey
	}

	body := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}
	if jsonOutput {
		body.GenerationConfig = &geminiGenerationConf{ResponseMimeType: "application/json"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.Endpoint, url.PathEscape(g.Model), url.QueryEscape(g.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("post request to gemini failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response failed: %w", err)
	}

	var result geminiResponse
	decodeErr := json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gerr := &GeminiError{StatusCode: resp.StatusCode}
		if decodeErr == nil && result.Error != nil {
			gerr.Message = result.Error.Message
		}
		return "", gerr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response failed: %w", decodeErr)
	}
	if result.Error != nil {
		return "", &GeminiError{StatusCode: resp.StatusCode, Message: result.Error.Message}
	}

	if len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0 {
		return result.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", errors.New("gemini returned no content")
}
