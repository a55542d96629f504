// Package config reads the build configuration file. The file is a set of
// named top-level sections, each decoded on demand into the type of the
// component that owns it.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/animalet/envplaceholder/internal/expansion"
	"github.com/animalet/envplaceholder/pkg/secrets"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Config holds the raw sections of a configuration file.
type Config struct {
	path     string
	sections map[string]any
	registry *secrets.Registry
}

type Validatable interface {
	Validate() error
}

// ClientFactory is implemented by the configuration of a remote secrets
// source. T is the client it creates, such as *api.Client for Vault or
// *redis.Pool for Redis.
type ClientFactory[T any] interface {
	Validatable
	// CreateClient creates and configures a client from the config details.
	CreateClient() (T, error)
}

// NewConfig reads the file at path. The format follows the extension:
// .yaml or .yml, .toml or .hcl.
func NewConfig(path string) (*Config, error) {
	// #nosec G304 -- the config location is chosen by the build owner
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %q", path)
	}
	cfg, err := Parse(data, filepath.Ext(path), path)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes data in the format named by ext. name is used in error
// messages only.
func Parse(data []byte, ext, name string) (*Config, error) {
	sections := make(map[string]any)
	var err error
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &sections)
	case "toml":
		err = toml.Unmarshal(data, &sections)
	case "hcl":
		sections, err = decodeHCL(data, name)
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing config %q", name)
	}
	if sections == nil {
		sections = make(map[string]any)
	}
	return &Config{sections: sections, registry: secrets.Global}, nil
}

// Path returns the file the config was read from, if any.
func (c *Config) Path() string {
	return c.path
}

// WithRegistry makes section decoding expand references through registry
// instead of secrets.Global.
func (c *Config) WithRegistry(registry *secrets.Registry) *Config {
	c.registry = registry
	return c
}

// Has reports whether the section key is present.
func (c *Config) Has(key string) bool {
	_, ok := c.sections[key]
	return ok
}

// Keys returns the section names, sorted.
func (c *Config) Keys() []string {
	keys := maps.Keys(c.sections)
	slices.Sort(keys)
	return keys
}

// Decode decodes the section key into a new T and expands its ${prefix:key}
// references. It returns nil, nil when the section is absent.
func Decode[T any](c *Config, key string) (*T, error) {
	section, ok := c.sections[key]
	if !ok {
		return nil, nil
	}

	data, err := yaml.Marshal(section)
	if err != nil {
		return nil, errors.Wrapf(err, "error re-encoding section %q", key)
	}
	var out T
	if err = yaml.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrapf(err, "error decoding section %q", key)
	}
	if err = expansion.ExpandVariables(&out, c.registry); err != nil {
		return nil, errors.Wrapf(err, "error expanding section %q", key)
	}
	return &out, nil
}

// Get is Decode followed by validation.
func Get[T Validatable](c *Config, key string) (*T, error) {
	out, err := Decode[T](c, key)
	if err != nil || out == nil {
		return nil, err
	}
	if err = (*out).Validate(); err != nil {
		return nil, errors.Wrapf(err, "section %q is invalid", key)
	}
	return out, nil
}

// GetClient reads the section key and creates its client. It returns nil, nil
// when the section is absent.
func GetClient[T ClientFactory[C], C any](c *Config, key string) (*C, error) {
	factory, err := Get[T](c, key)
	if err != nil || factory == nil {
		return nil, err
	}
	client, err := (*factory).CreateClient()
	if err != nil {
		return nil, errors.Wrapf(err, "error creating client for section %q", key)
	}
	return &client, nil
}
