package stage

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
)

const defaultStageTimeout = 60 * time.Second

// HTTPOptions configures a remote stage.
type HTTPOptions struct {
	Name       string
	BaseURL    string
	Path       string
	APIKey     string
	Timeout    time.Duration
	Schema     *Schema
	HTTPClient *http.Client
}

// HTTPPipeline runs a stage on a remote pipeline runner. The inputs are
// posted as a JSON object and the response body is the outputs object.
type HTTPPipeline struct {
	name     string
	endpoint string
	apiKey   string
	timeout  time.Duration
	schema   *Schema
	client   *http.Client
}

func NewHTTPPipeline(opts HTTPOptions) (*HTTPPipeline, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return nil, errors.New("stage name is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("stage %s: base url is required", name)
	}
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = "/v1/pipelines/" + name
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultStageTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPPipeline{
		name:     name,
		endpoint: baseURL + path,
		apiKey:   strings.TrimSpace(opts.APIKey),
		timeout:  timeout,
		schema:   opts.Schema,
		client:   client,
	}, nil
}

func (p *HTTPPipeline) Name() string { return p.name }

func (p *HTTPPipeline) Run(ctx context.Context, in Inputs) (Outputs, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(in); err != nil {
		return Outputs{}, fmt.Errorf("stage %s: encode inputs: %w", p.name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return Outputs{}, fmt.Errorf("stage %s: build request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Outputs{}, fmt.Errorf("stage %s: request: %w", p.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Outputs{}, fmt.Errorf("stage %s: read response: %w", p.name, err)
	}
	if resp.StatusCode >= 300 {
		return Outputs{}, fmt.Errorf("stage %s: status %d: %s", p.name, resp.StatusCode, snippet(body))
	}
	if err := p.schema.Validate(body); err != nil {
		return Outputs{}, fmt.Errorf("stage %s: %w", p.name, err)
	}
	out, err := ParseOutputs(body)
	if err != nil {
		return Outputs{}, fmt.Errorf("stage %s: %w", p.name, err)
	}
	return out, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

var _ Pipeline = (*HTTPPipeline)(nil)
