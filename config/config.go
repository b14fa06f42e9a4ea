// Package config loads the assetmigrate TOML configuration.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jonwraymond/assetmigrate/attachment"
	"github.com/jonwraymond/assetmigrate/auth"
	"github.com/jonwraymond/assetmigrate/batch"
	"github.com/jonwraymond/assetmigrate/health"
	"github.com/jonwraymond/assetmigrate/observe"
	"github.com/jonwraymond/assetmigrate/secret"
)

//go:embed config.example.toml
var exampleConf []byte

// Store kinds.
const (
	StoreMemory = "memory"
	StoreDir    = "dir"
)

// Config is the complete service configuration.
type Config struct {
	Service    ServiceConfig    `toml:"service"`
	Observe    observe.Config   `toml:"observe"`
	Resilience ResilienceConfig `toml:"resilience"`
	Batch      batch.Options    `toml:"batch"`
	Server     ServerConfig     `toml:"server"`
	Auth       auth.Config      `toml:"auth"`
	Store      StoreConfig      `toml:"store"`
	Health     HealthConfig     `toml:"health"`

	// Secrets configures secret providers by name, e.g. [secrets.file]
	// dir = "/run/secrets". The env provider is always available.
	Secrets map[string]map[string]any `toml:"secrets"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Environment string `toml:"environment"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr              string        `toml:"addr"`
	ReadHeaderTimeout time.Duration `toml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
	MaxBodyBytes      int64         `toml:"max_body_bytes"`
}

// StoreConfig selects the attachment store.
type StoreConfig struct {
	Kind string `toml:"kind"` // memory|dir
	Dir  string `toml:"dir"`
}

// Open creates the configured store.
func (s StoreConfig) Open() (attachment.Store, error) {
	switch s.Kind {
	case StoreMemory, "":
		return attachment.NewMemoryStore(), nil
	case StoreDir:
		store, err := attachment.NewDirStore(s.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("config: unknown store kind %q", s.Kind)
	}
}

// HealthConfig configures health checking.
type HealthConfig struct {
	Interval     time.Duration `toml:"interval"`
	Timeout      time.Duration `toml:"timeout"`
	MaxParallel  int           `toml:"max_parallel"`
	MaxHeapBytes uint64        `toml:"max_heap_bytes"`
}

// Aggregator returns the aggregator settings.
func (h HealthConfig) Aggregator() health.AggregatorConfig {
	return health.AggregatorConfig{Timeout: h.Timeout, MaxParallel: h.MaxParallel}
}

// Default returns the configuration described by config.example.toml.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("config: parse embedded defaults: %v", err))
	}
	return &cfg
}

// Example returns the annotated default configuration file.
func Example() []byte {
	return slices.Clone(exampleConf)
}

// WriteExample writes the default configuration to path. An existing file
// is never overwritten.
func WriteExample(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	if _, err := f.Write(exampleConf); err != nil {
		_ = f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads path over the defaults, resolves secrets and validates the
// result. Unknown keys are rejected. An empty path yields the defaults.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ResolveSecrets(ctx); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates it without resolving
// secrets.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			// Provider settings are free-form.
			if len(k) > 0 && k[0] == "secrets" {
				continue
			}
			keys = append(keys, k.String())
		}
		if len(keys) > 0 {
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	}
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = c.Service.Name
	}
	if c.Observe.Version == "" {
		c.Observe.Version = c.Service.Version
	}
	return nil
}

// ResolveSecrets replaces ${ENV} and secretref references in credential
// and path fields.
func (c *Config) ResolveSecrets(ctx context.Context) error {
	resolver, err := secret.Builtin().Resolver(c.Secrets)
	if err != nil {
		return fmt.Errorf("config: secrets: %w", err)
	}
	defer resolver.Close()

	fields := map[string]*string{
		"auth.jwt.secret":      &c.Auth.JWT.Secret,
		"auth.jwt.issuer":      &c.Auth.JWT.Issuer,
		"auth.jwt.audience":    &c.Auth.JWT.Audience,
		"auth.anonymous_owner": &c.Auth.AnonymousOwner,
		"store.dir":            &c.Store.Dir,
		"server.addr":          &c.Server.Addr,
	}
	for i := range c.Auth.APIKeys {
		k := &c.Auth.APIKeys[i]
		fields[fmt.Sprintf("auth.api_keys[%d].key", i)] = &k.Key
		fields[fmt.Sprintf("auth.api_keys[%d].hash", i)] = &k.Hash
	}
	if err := resolver.ResolveInPlace(ctx, fields); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate reports every configuration error.
func (c *Config) Validate() error {
	var errs []error
	if c.Service.Name == "" {
		errs = append(errs, errors.New("service.name is required"))
	}
	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}
	if err := c.Resilience.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Batch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("batch: %w", err))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.max_body_bytes must not be negative"))
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Kind {
	case StoreMemory, "":
	case StoreDir:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the dir store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.kind %q is not one of memory, dir", c.Store.Kind))
	}
	if c.Health.Interval < 0 || c.Health.Timeout < 0 || c.Health.MaxParallel < 0 {
		errs = append(errs, errors.New("health settings must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
