package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
base_url: http://runner:5556
timeout: 45s
stages:
  retrieval:
    path: /pipelines/retrieval/run
    timeout: 10s
  sql_summary:
    base_url: http://summary:7000
    skip_validation: true
  sql_correction:
    output_schema:
      type: object
      required: [post_process]
`

func TestBuildRegistryFromYAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	reg, err := BuildRegistry(cfg, RemoteOptions{BaseURL: "http://ignored", APIKey: "k"})
	if err != nil {
		t.Fatalf("BuildRegistry error: %v", err)
	}
	if err := reg.Require(Names...); err != nil {
		t.Fatalf("Require error: %v", err)
	}

	tests := []struct {
		name       string
		endpoint   string
		timeout    time.Duration
		wantSchema bool
	}{
		{Retrieval, "http://runner:5556/pipelines/retrieval/run", 10 * time.Second, true},
		{Generation, "http://runner:5556/v1/pipelines/sql_expansion", 45 * time.Second, true},
		{Correction, "http://runner:5556/v1/pipelines/sql_correction", 45 * time.Second, true},
		{Summary, "http://summary:7000/v1/pipelines/sql_summary", 45 * time.Second, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := reg[tc.name].(*HTTPPipeline)
			if p.endpoint != tc.endpoint {
				t.Fatalf("endpoint = %q, want %q", p.endpoint, tc.endpoint)
			}
			if p.timeout != tc.timeout {
				t.Fatalf("timeout = %s, want %s", p.timeout, tc.timeout)
			}
			if (p.schema != nil) != tc.wantSchema {
				t.Fatalf("schema set = %v, want %v", p.schema != nil, tc.wantSchema)
			}
			if p.apiKey != "k" {
				t.Fatalf("apiKey = %q, want %q", p.apiKey, "k")
			}
		})
	}
}

func TestBuildRegistryWithoutFile(t *testing.T) {
	reg, err := BuildRegistry(nil, RemoteOptions{BaseURL: "http://env-runner"})
	if err != nil {
		t.Fatalf("BuildRegistry error: %v", err)
	}
	p := reg[Retrieval].(*HTTPPipeline)
	if p.endpoint != "http://env-runner/v1/pipelines/retrieval" {
		t.Fatalf("endpoint = %q", p.endpoint)
	}
	if p.timeout != defaultStageTimeout {
		t.Fatalf("timeout = %s, want %s", p.timeout, defaultStageTimeout)
	}

	if _, err := BuildRegistry(nil, RemoteOptions{}); err == nil {
		t.Fatal("expected error without any base url")
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig([]byte("stages:\n  bogus: {}\n")); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("ParseConfig(unknown stage) error = %v, want ErrUnknownStage", err)
	}
	if _, err := ParseConfig([]byte("base_url: [")); err == nil {
		t.Fatal("expected YAML syntax error")
	}
	cfg, _ := ParseConfig([]byte("base_url: http://x\ntimeout: soon\n"))
	if _, err := BuildRegistry(cfg, RemoteOptions{}); err == nil {
		t.Fatal("expected invalid timeout error")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile error: %v", err)
	}
	if cfg.BaseURL != "http://runner:5556" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
