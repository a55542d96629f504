// Package placeholder resolves manifest placeholder values from a project's
// env file.
//
// A build evaluation creates one Resolver, which reads the env file at most
// once, and asks it for the values of its placeholder bindings. Resolution
// never fails: a missing file, a missing key or a failing fallback source all
// degrade to the binding's default.
package placeholder

import (
	"sync"

	"github.com/animalet/envplaceholder/pkg/envfile"
	"github.com/animalet/envplaceholder/pkg/secrets"
	"github.com/rs/zerolog/log"
)

// Resolver is the env-backed placeholder resolver of one build evaluation.
type Resolver struct {
	path     string
	registry *secrets.Registry

	once  sync.Once
	props *envfile.Properties
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry sets the registry used for binding fallback sources.
// Without it, fallbacks use secrets.Global.
func WithRegistry(registry *secrets.Registry) Option {
	return func(r *Resolver) {
		r.registry = registry
	}
}

// WithProperties supplies already loaded env properties; the env file is then
// not read.
func WithProperties(props *envfile.Properties) Option {
	return func(r *Resolver) {
		r.once.Do(func() {
			r.props = props
			if r.props == nil {
				r.props = envfile.New()
			}
		})
	}
}

// NewResolver creates a resolver for the env file envFile relative to baseDir.
// An empty envFile means DefaultEnvFile.
func NewResolver(baseDir, envFile string, opts ...Option) *Resolver {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	r := &Resolver{
		path:     envfile.Resolve(baseDir, envFile),
		registry: secrets.Global,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the env file location.
func (r *Resolver) Path() string {
	return r.path
}

// Env returns the env file contents, reading the file on first use.
func (r *Resolver) Env() *envfile.Properties {
	r.once.Do(func() {
		r.props = envfile.Load(r.path)
	})
	return r.props
}

// Lookup returns the env file value of key, or def.
func (r *Resolver) Lookup(key, def string) string {
	return r.Env().GetOrDefault(key, def)
}

// Resolve returns one entry per binding and nothing else.
func (r *Resolver) Resolve(bindings ...Binding) Map {
	out := make(Map, len(bindings))
	for _, b := range bindings {
		out[b.Placeholder] = r.resolve(b)
	}
	return out
}

func (r *Resolver) resolve(b Binding) string {
	if v, ok := r.Env().Get(b.Key); ok {
		log.Debug().Str("placeholder", b.Placeholder).Str("key", b.Key).Msg("Placeholder resolved from env file")
		return v
	}
	if b.Source == "" || r.registry == nil {
		log.Debug().Str("placeholder", b.Placeholder).Str("key", b.Key).Msg("Key not in env file - using default")
		return b.Default
	}

	v, err := r.registry.Lookup(b.Source, b.Key)
	if err != nil {
		log.Warn().Err(err).
			Str("placeholder", b.Placeholder).
			Str("source", b.Source).
			Msg("Fallback source failed - using default")
		return b.Default
	}
	if v == "" {
		return b.Default
	}
	log.Debug().Str("placeholder", b.Placeholder).Str("source", b.Source).Msg("Placeholder resolved from fallback source")
	return v
}

// ResolveMapsKey reads <baseDir>/../.env and returns the placeholder map of
// the Android build: GOOGLE_MAPS_API_KEY set to ANDROID_MAPS_KEY, or "".
func ResolveMapsKey(baseDir string) Map {
	return NewResolver(baseDir, DefaultEnvFile).Resolve(DefaultBindings()...)
}
