// Package comfy is the HTTP client for the ComfyUI execution backend.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"docent-service/internal/tracing"
	"docent-service/internal/workflow"
)

var (
	ErrSubmission    = errors.New("comfy: submission failed")
	ErrArtifactFetch = errors.New("comfy: artifact fetch failed")
	ErrUpload        = errors.New("comfy: image upload failed")
)

const maxErrorBody = 2048

// HTTPError carries a non-2xx response.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

type Options struct {
	BaseURL           string
	ClientID          string
	HTTPClient        *http.Client
	SubmitTimeout     time.Duration
	RecordTimeout     time.Duration
	ArtifactTimeout   time.Duration
	RequestsPerSecond float64
	Logger            zerolog.Logger
}

// Client is stateless apart from the shared rate limiter; it never retries.
type Client struct {
	baseURL         string
	clientID        string
	httpClient      *http.Client
	submitTimeout   time.Duration
	recordTimeout   time.Duration
	artifactTimeout time.Duration
	limiter         *rate.Limiter
	log             zerolog.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8188"
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		baseURL:         baseURL,
		clientID:        clientID,
		httpClient:      httpClient,
		submitTimeout:   orDefault(opts.SubmitTimeout, 300*time.Second),
		recordTimeout:   orDefault(opts.RecordTimeout, 30*time.Second),
		artifactTimeout: orDefault(opts.ArtifactTimeout, 60*time.Second),
		limiter:         rate.NewLimiter(limit, 2),
		log:             opts.Logger.With().Str("component", "comfy").Logger(),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

type submitRequest struct {
	Prompt   workflow.Graph `json:"prompt"`
	ClientID string         `json:"client_id"`
}

type submitResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors"`
}

// Submit queues graph for execution and returns the execution id.
func (c *Client) Submit(ctx context.Context, graph workflow.Graph) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Comfy/Submit")
	defer span.End()

	id, err := c.submit(ctx, graph)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSubmission, err)
		tracing.RecordError(span, err)
		return "", err
	}
	span.SetAttributes(attribute.String("comfy.prompt_id", id))
	return id, nil
}

func (c *Client) submit(ctx context.Context, graph workflow.Graph) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: graph, ClientID: c.clientID})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newHTTPError("submit", resp)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.PromptID == "" {
		if hasNodeErrors(out.NodeErrors) {
			return "", fmt.Errorf("node errors: %s", out.NodeErrors)
		}
		return "", errors.New("response missing prompt_id")
	}
	c.log.Debug().Str("prompt_id", out.PromptID).Int("number", out.Number).Msg("graph queued")
	return out.PromptID, nil
}

func hasNodeErrors(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "{}" && s != "null"
}

// FetchRecord returns the execution record, or (nil, nil) when the backend
// has none for id yet.
func (c *Client) FetchRecord(ctx context.Context, id string) (*Record, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Comfy/FetchRecord")
	defer span.End()
	span.SetAttributes(attribute.String("comfy.prompt_id", id))

	ctx, cancel := context.WithTimeout(ctx, c.recordTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := newHTTPError("history", resp)
		tracing.RecordError(span, err)
		return nil, err
	}

	var history map[string]Record
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		err = fmt.Errorf("history: decode response: %w", err)
		tracing.RecordError(span, err)
		return nil, err
	}
	rec, ok := history[id]
	if !ok {
		span.SetAttributes(attribute.Bool("comfy.record_present", false))
		return nil, nil
	}
	span.SetAttributes(attribute.Bool("comfy.record_present", true))
	return &rec, nil
}

// FetchArtifact downloads the bytes of a.
func (c *Client) FetchArtifact(ctx context.Context, a Artifact) ([]byte, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Comfy/FetchArtifact")
	defer span.End()
	span.SetAttributes(attribute.String("comfy.filename", a.Filename))

	data, err := c.fetchArtifact(ctx, a)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrArtifactFetch, err)
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("comfy.bytes", len(data)))
	return data, nil
}

func (c *Client) fetchArtifact(ctx context.Context, a Artifact) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.artifactTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("filename", a.Filename)
	q.Set("subfolder", a.Subfolder)
	q.Set("type", a.Type)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError("view", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty body for %s", a.Filename)
	}
	return data, nil
}

type uploadResponse struct {
	Name      string `json:"name"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// UploadImage stores data in the backend's input folder and returns the
// name a LoadImage node should reference.
func (c *Client) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "Comfy/UploadImage")
	defer span.End()

	ref, err := c.uploadImage(ctx, name, data)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrUpload, err)
		tracing.RecordError(span, err)
		return "", err
	}
	return ref, nil
}

func (c *Client) uploadImage(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = mw.WriteField("type", "input")
	_ = mw.WriteField("overwrite", "true")
	if err := mw.Close(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/image", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newHTTPError("upload", resp)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Name == "" {
		return "", errors.New("response missing name")
	}
	if out.Subfolder != "" {
		return out.Subfolder + "/" + out.Name, nil
	}
	return out.Name, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	ev := c.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Dur("took", time.Since(start))
	if err != nil {
		ev.Err(err).Msg("comfy request failed")
		return nil, err
	}
	ev.Int("status", resp.StatusCode).Msg("comfy request")
	return resp, nil
}

func newHTTPError(op string, resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
