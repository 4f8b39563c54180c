package stage

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML description of the remote pipeline runner.
//
//	base_url: http://pipelines:5556
//	timeout: 60s
//	stages:
//	  retrieval:
//	    path: /v1/pipelines/retrieval
//	    timeout: 20s
type FileConfig struct {
	BaseURL string                 `yaml:"base_url"`
	Timeout string                 `yaml:"timeout"`
	Stages  map[string]StageConfig `yaml:"stages"`
}

// StageConfig overrides the defaults of one stage.
type StageConfig struct {
	BaseURL        string         `yaml:"base_url"`
	Path           string         `yaml:"path"`
	Timeout        string         `yaml:"timeout"`
	OutputSchema   map[string]any `yaml:"output_schema"`
	SkipValidation bool           `yaml:"skip_validation"`
}

// RemoteOptions carries process level settings that apply to every stage.
type RemoteOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// ParseConfig decodes a YAML stage configuration.
func ParseConfig(b []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	for name := range cfg.Stages {
		if !known(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownStage, name)
		}
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses the YAML file at path.
func LoadConfigFile(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage config: %w", err)
	}
	return ParseConfig(b)
}

// BuildRegistry creates an HTTP pipeline for every stage in Names. cfg may be
// nil. The file's base url wins over opts.BaseURL.
func BuildRegistry(cfg *FileConfig, opts RemoteOptions) (Registry, error) {
	if cfg == nil {
		cfg = &FileConfig{}
	}
	defaultTimeout, err := parseTimeout(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	reg := make(Registry, len(Names))
	for _, name := range Names {
		sc := cfg.Stages[name]
		baseURL := firstNonEmpty(sc.BaseURL, cfg.BaseURL, opts.BaseURL)
		timeout, err := parseTimeout(sc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
		if timeout == 0 {
			timeout = defaultTimeout
		}
		schema, err := stageSchema(name, sc)
		if err != nil {
			return nil, err
		}
		p, err := NewHTTPPipeline(HTTPOptions{
			Name:       name,
			BaseURL:    baseURL,
			Path:       sc.Path,
			APIKey:     opts.APIKey,
			Timeout:    timeout,
			Schema:     schema,
			HTTPClient: opts.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		reg[name] = p
	}
	return reg, nil
}

func stageSchema(name string, sc StageConfig) (*Schema, error) {
	switch {
	case sc.SkipValidation:
		return nil, nil
	case len(sc.OutputSchema) > 0:
		return CompileSchemaMap(name, sc.OutputSchema)
	default:
		return CompileSchema(name, []byte(DefaultSchemas[name]))
	}
}

func parseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", v, err)
	}
	return d, nil
}

func known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
