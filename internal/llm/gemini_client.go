package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"checkin/internal/logging"
)

var _ Client = (*geminiClient)(nil)

// ErrEmptyCompletion is returned when the model answers with no candidates
// or only blank text. Callers decide whether that is fatal.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// geminiClient talks to the Gemini generateContent REST endpoint.
type geminiClient struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

func NewGeminiClient(model string, config Config) (Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini client requires an API key")
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &geminiClient{
		model:   model,
		apiKey:  config.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: config.timeout(60 * time.Second),
		},
		logger: logging.NewComponentLogger("gemini-client"),
	}, nil
}

func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	request := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var response geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("gemini error: %s", response.Error.Message)
	}

	text := response.text()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("Gemini returned no usable candidates for model %s", c.model)
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *geminiClient) Model() string {
	return c.model
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
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

func (r geminiResponse) text() string {
	var builder strings.Builder
	for _, candidate := range r.Candidates {
		for _, part := range candidate.Content.Parts {
			builder.WriteString(part.Text)
		}
		// Only the first candidate is requested; stop after it regardless.
		break
	}
	return builder.String()
}
