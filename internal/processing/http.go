package processing

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

	"quire/internal/queue"
)

const defaultHTTPTimeout = 120 * time.Second

// HTTPProcessor invokes an external document processor through a webhook
// endpoint.
type HTTPProcessor struct {
	endpoint   string
	kind       queue.Kind
	httpClient *http.Client
}

// Option customizes the HTTP processor.
type Option func(*HTTPProcessor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProcessor) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *HTTPProcessor) {
		if timeout > 0 {
			p.httpClient.Timeout = timeout
		}
	}
}

// NewHTTPProcessor constructs a processor posting work to endpoint.
func NewHTTPProcessor(endpoint string, kind queue.Kind, opts ...Option) *HTTPProcessor {
	processor := &HTTPProcessor{
		endpoint:   strings.TrimSpace(endpoint),
		kind:       kind,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(processor)
	}
	return processor
}

type processRequest struct {
	DocumentID string `json:"document_id"`
	Kind       string `json:"kind"`
}

type processResponse struct {
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// Process posts the document to the webhook and interprets its JSON reply.
// Transport and decode problems surface as errors; a well-formed reply with
// success=false is a reported processing failure, not an error.
func (p *HTTPProcessor) Process(ctx context.Context, documentID string) (Result, error) {
	var empty Result
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return empty, errors.New("process: document id required")
	}
	if p.endpoint == "" {
		return empty, fmt.Errorf("process: no endpoint configured for kind %q", p.kind)
	}

	requestBody, err := json.Marshal(processRequest{DocumentID: documentID, Kind: string(p.kind)})
	if err != nil {
		return empty, fmt.Errorf("encode process request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return empty, fmt.Errorf("build process request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("call processor %q: %w", p.kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return empty, fmt.Errorf("read processor response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return empty, fmt.Errorf("processor %q returned status %d: %s", p.kind, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded processResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("decode processor response: %w", err)
	}

	return Result{
		Success:      decoded.Success,
		ErrorMessage: decoded.ErrorMessage,
		Payload:      string(decoded.Result),
	}, nil
}
