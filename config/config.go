// Package config loads gateway settings from YAML and turns them into helicone options.
//
//	base_url: https://ai-gateway.helicone.ai
//	api_key_env: HELICONE_API_KEY
//	headers:
//	  X-Team: search
//	metadata:
//	  user_id: svc-indexer
//	  properties: {env: prod}
//	  retry: {num: 3, factor: 2, min_timeout: 500ms}
//	model_config:
//	  temperature: 0.2
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Helicone/ai-sdk/adapter/helicone"
)

// ErrInvalidConfig is returned when a config file parses but cannot be used.
var ErrInvalidConfig = errors.New("config: invalid gateway config")

// File is the YAML config shape.
type File struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// APIKeyEnv names the environment variable holding the key. Mutually exclusive with APIKey.
	APIKeyEnv   string            `yaml:"api_key_env"`
	Headers     map[string]string `yaml:"headers"`
	Metadata    Metadata          `yaml:"metadata"`
	ModelConfig map[string]any    `yaml:"model_config"`
}

// Metadata mirrors helicone.Metadata with YAML keys.
type Metadata struct {
	SessionID   string         `yaml:"session_id"`
	SessionName string         `yaml:"session_name"`
	SessionPath string         `yaml:"session_path"`
	UserID      string         `yaml:"user_id"`
	Properties  map[string]any `yaml:"properties"`
	Tags        []string       `yaml:"tags"`
	Cache       *bool          `yaml:"cache"`
	Retry       *Retry         `yaml:"retry"`
	Fallbacks   []string       `yaml:"fallbacks"`
}

// Retry mirrors helicone.RetryPolicy. Timeouts use Go duration syntax ("500ms", "10s").
// A retry block without enabled turns retries on.
type Retry struct {
	Enabled    *bool         `yaml:"enabled"`
	Num        int           `yaml:"num"`
	Factor     float64       `yaml:"factor"`
	MinTimeout time.Duration `yaml:"min_timeout"`
	MaxTimeout time.Duration `yaml:"max_timeout"`
}

// ParseBytes parses and validates a YAML config.
func ParseBytes(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads and parses a config file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a config from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*File, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("config: read fs: %w", err)
	}
	return ParseBytes(data)
}

func (f *File) validate() error {
	if f.BaseURL != "" {
		u, err := url.Parse(f.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: base_url %q must be an absolute http(s) URL", ErrInvalidConfig, f.BaseURL)
		}
	}
	if f.APIKey != "" && f.APIKeyEnv != "" {
		return fmt.Errorf("%w: api_key and api_key_env are mutually exclusive", ErrInvalidConfig)
	}
	for k := range f.Headers {
		if strings.TrimSpace(k) == "" || strings.ContainsAny(k, " \t:\r\n") {
			return fmt.Errorf("%w: header name %q is not valid", ErrInvalidConfig, k)
		}
	}
	for _, tag := range f.Metadata.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("%w: metadata.tags must not contain empty tags", ErrInvalidConfig)
		}
	}
	if r := f.Metadata.Retry; r != nil {
		if r.Num < 0 || r.Factor < 0 || r.MinTimeout < 0 || r.MaxTimeout < 0 {
			return fmt.Errorf("%w: metadata.retry values must not be negative", ErrInvalidConfig)
		}
		if r.MaxTimeout > 0 && r.MinTimeout > r.MaxTimeout {
			return fmt.Errorf("%w: metadata.retry.min_timeout exceeds max_timeout", ErrInvalidConfig)
		}
	}
	return nil
}

// ResolveAPIKey returns api_key, or the value of the api_key_env variable.
func (f *File) ResolveAPIKey() string {
	if f.APIKey != "" {
		return f.APIKey
	}
	if f.APIKeyEnv != "" {
		return os.Getenv(f.APIKeyEnv)
	}
	return ""
}

// HeliconeMetadata converts the metadata block.
func (f *File) HeliconeMetadata() helicone.Metadata {
	m := f.Metadata
	out := helicone.Metadata{
		SessionID:   m.SessionID,
		SessionName: m.SessionName,
		SessionPath: m.SessionPath,
		UserID:      m.UserID,
		Properties:  m.Properties,
		Tags:        m.Tags,
		Cache:       m.Cache,
		Fallbacks:   m.Fallbacks,
	}
	if r := m.Retry; r != nil {
		enabled := true
		if r.Enabled != nil {
			enabled = *r.Enabled
		}
		out.Retry = &helicone.RetryPolicy{
			Enabled:    enabled,
			MaxRetries: r.Num,
			Factor:     r.Factor,
			MinTimeout: r.MinTimeout,
			MaxTimeout: r.MaxTimeout,
		}
	}
	return out
}

// Options returns the helicone options described by the file.
// Pass extra options after them to override (e.g. helicone.WithHTTPClient).
func (f *File) Options() []helicone.Option {
	opts := []helicone.Option{helicone.WithMetadata(f.HeliconeMetadata())}
	if f.BaseURL != "" {
		opts = append(opts, helicone.WithBaseURL(f.BaseURL))
	}
	if key := f.ResolveAPIKey(); key != "" {
		opts = append(opts, helicone.WithAPIKey(key))
	}
	if len(f.Headers) > 0 {
		opts = append(opts, helicone.WithHeaders(f.Headers))
	}
	if len(f.ModelConfig) > 0 {
		opts = append(opts, helicone.WithModelConfig(f.ModelConfig))
	}
	return opts
}

// Provider builds a helicone.Provider from the file followed by extra options.
func (f *File) Provider(extra ...helicone.Option) *helicone.Provider {
	return helicone.New(append(f.Options(), extra...)...)
}
