package domain

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Auth modes accepted in TargetAuth.Mode.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthAPIKey = "apikey"
)

// DefaultAPIKeyHeader is used when an apikey target does not name a header.
const DefaultAPIKeyHeader = "X-API-Key"

// Target is one upstream API to query. Name is the key in the report.
type Target struct {
	Name string     `yaml:"name" json:"name"`
	URL  string     `yaml:"url" json:"url"`
	Auth TargetAuth `yaml:"auth" json:"-"`
}

// TargetAuth configures credentials for a target. Secret values are read
// from the environment when a request is built, never from the file.
type TargetAuth struct {
	Mode     string `yaml:"mode"`
	Header   string `yaml:"header"`
	TokenEnv string `yaml:"token_env"`
	KeyEnv   string `yaml:"key_env"`
}

// Token returns the bearer token resolved from TokenEnv.
func (a TargetAuth) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Key returns the API key resolved from KeyEnv.
func (a TargetAuth) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// HeaderName returns the header an apikey target sends its key in.
func (a TargetAuth) HeaderName() string {
	if a.Header == "" {
		return DefaultAPIKeyHeader
	}
	return a.Header
}

// Registry is the ordered, immutable list of targets loaded at startup.
type Registry struct {
	targets []Target
}

// ErrEmptyRegistry is returned when no targets are configured.
var ErrEmptyRegistry = errors.New("registry: at least one target is required")

// NewRegistry validates targets and returns a Registry holding a private copy.
// An empty URL is accepted; fetching it fails and is reported as -1.
func NewRegistry(targets []Target) (*Registry, error) {
	if len(targets) == 0 {
		return nil, ErrEmptyRegistry
	}
	seen := make(map[string]int, len(targets))
	for i, t := range targets {
		if t.Name == "" {
			return nil, fmt.Errorf("registry: targets[%d]: name is required", i)
		}
		if j, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("registry: targets[%d]: duplicate name %q (first at targets[%d])", i, t.Name, j)
		}
		seen[t.Name] = i
		switch t.Auth.Mode {
		case "", AuthNone, AuthBearer, AuthAPIKey:
		default:
			return nil, fmt.Errorf("registry: targets[%d] %q: unknown auth mode %q", i, t.Name, t.Auth.Mode)
		}
	}
	cp := make([]Target, len(targets))
	copy(cp, targets)
	return &Registry{targets: cp}, nil
}

// Targets returns a copy of the targets in configuration order.
func (r *Registry) Targets() []Target {
	cp := make([]Target, len(r.targets))
	copy(cp, r.targets)
	return cp
}

// Len returns the number of targets.
func (r *Registry) Len() int { return len(r.targets) }

// Names returns the target names in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.targets))
	for i, t := range r.targets {
		names[i] = t.Name
	}
	return names
}

type registryFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadRegistry reads a YAML targets file of the form
//
//	targets:
//	  - name: facebook
//	    url: https://takehome.io/facebook
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse yaml: %w", err)
	}
	return NewRegistry(f.Targets)
}

// DefaultRegistry returns the built-in social network targets.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry([]Target{
		{Name: "facebook", URL: "https://takehome.io/facebook"},
		{Name: "twitter", URL: "https://takehome.io/twitter"},
		{Name: "instagram", URL: "https://takehome.io/instagram"},
	})
	return r
}
