package stage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestHTTPPipelineRun(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"post_process":{"sql_summary_results":[{"sql":"select 1","summary":"one"}]}}`)
	}))
	defer srv.Close()

	schema, err := CompileSchema(Summary, []byte(DefaultSchemas[Summary]))
	if err != nil {
		t.Fatalf("CompileSchema error: %v", err)
	}
	p, err := NewHTTPPipeline(HTTPOptions{Name: Summary, BaseURL: srv.URL + "/", APIKey: "secret", Schema: schema})
	if err != nil {
		t.Fatalf("NewHTTPPipeline error: %v", err)
	}
	out, err := p.Run(context.Background(), Inputs{"query": "q", "sqls": []string{"select 1"}, "language": "English"})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
	if gotPath != "/v1/pipelines/sql_summary" {
		t.Fatalf("path = %q, want %q", gotPath, "/v1/pipelines/sql_summary")
	}
	if gotBody["language"] != "English" {
		t.Fatalf("body language = %#v", gotBody["language"])
	}
	var summaries []struct {
		SQL     string `json:"sql"`
		Summary string `json:"summary"`
	}
	if err := out.Decode("post_process.sql_summary_results", &summaries); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Summary != "one" {
		t.Fatalf("summaries = %#v", summaries)
	}
}

func TestHTTPPipelineSchemaViolation(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"post_process":{"valid_generation_results":[{"nosql":true}],"invalid_generation_results":[]}}`)),
		}, nil
	})}
	schema, err := CompileSchema(Generation, []byte(DefaultSchemas[Generation]))
	if err != nil {
		t.Fatalf("CompileSchema error: %v", err)
	}
	p, err := NewHTTPPipeline(HTTPOptions{Name: Generation, BaseURL: "http://runner", Schema: schema, HTTPClient: client})
	if err != nil {
		t.Fatalf("NewHTTPPipeline error: %v", err)
	}
	if _, err := p.Run(context.Background(), Inputs{}); !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("Run error = %v, want ErrInvalidOutput", err)
	}
}

func TestHTTPPipelineStatusError(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("upstream down")),
		}, nil
	})}
	p, err := NewHTTPPipeline(HTTPOptions{Name: Retrieval, BaseURL: "http://runner", HTTPClient: client})
	if err != nil {
		t.Fatalf("NewHTTPPipeline error: %v", err)
	}
	_, err = p.Run(context.Background(), Inputs{})
	if err == nil || !strings.Contains(err.Error(), "status 502") || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("Run error = %v, want status 502 with body", err)
	}
}

func TestHTTPPipelineTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p, err := NewHTTPPipeline(HTTPOptions{Name: Retrieval, BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewHTTPPipeline error: %v", err)
	}
	_, err = p.Run(context.Background(), Inputs{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run error = %v, want deadline exceeded", err)
	}
}

func TestNewHTTPPipelineRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPPipeline(HTTPOptions{Name: Retrieval}); err == nil {
		t.Fatal("expected error without base url")
	}
	if _, err := NewHTTPPipeline(HTTPOptions{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected error without name")
	}
}
