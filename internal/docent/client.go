// Package docent talks to the local Ollama model that answers visitor
// questions.
package docent

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

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docent-service/internal/tracing"
)

// DefaultImagePrompt is sent when an image arrives without a question.
const DefaultImagePrompt = "Please describe this image."

var ErrEmptyResponse = errors.New("docent: empty response")

type Options struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	timeout    time.Duration
	log        zerolog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemma3:latest"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		timeout:    timeout,
		log:        opts.Logger.With().Str("component", "docent").Logger(),
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Images  []string       `json:"images,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate asks the model for a single non-streamed answer. images are
// base64 encoded.
func (c *Client) Generate(ctx context.Context, prompt string, images []string) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Docent/Generate")
	defer span.End()

	if strings.TrimSpace(prompt) == "" && len(images) > 0 {
		prompt = DefaultImagePrompt
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Images: images,
		// Offload as many layers as fit on the GPU; the rest stay on CPU.
		Options: map[string]any{"num_gpu": 99},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("docent: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("docent: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		tracing.RecordError(span, err)
		return "", err
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("docent: decode response: %w", err)
	}
	if out.Error != "" {
		err := fmt.Errorf("docent: %s", out.Error)
		tracing.RecordError(span, err)
		return "", err
	}
	answer := strings.TrimSpace(out.Response)
	if answer == "" {
		return "", ErrEmptyResponse
	}
	c.log.Debug().Str("model", c.model).Dur("took", time.Since(start)).Int("images", len(images)).Msg("docent answered")
	return answer, nil
}
