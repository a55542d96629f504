// Package secrets provides an extensible property resolution system that lets
// build configuration pull values from different sources by prefix.
package secrets

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultPrefix is used for properties written without a prefix.
const DefaultPrefix = "env"

// PropertyResolver defines the interface that all property sources must implement.
// A resolver is responsible for retrieving a value based on a key.
//
// Example implementations:
//   - EnvLoader: Resolves environment variables
//   - DotEnvLoader: Resolves keys of the project env file
//   - FileSecretLoader: Reads secrets from files
//   - VaultSecretLoader: Retrieves secrets from HashiCorp Vault
type PropertyResolver interface {
	// Resolve retrieves the value for the given key (without the prefix).
	Resolve(key string) (string, error)

	// Name returns a human-readable name for this resolver (for logging/debugging)
	Name() string
}

// Registry associates prefixes with their resolvers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]PropertyResolver
}

// NewRegistry creates a registry with the environment resolver registered
// under DefaultPrefix.
func NewRegistry() *Registry {
	r := &Registry{resolvers: make(map[string]PropertyResolver)}
	r.resolvers[DefaultPrefix] = NewEnvLoader()
	return r
}

// Global is the registry used by the package-level functions and by config expansion.
var Global = NewRegistry()

// Register registers a resolver for a specific prefix.
// The prefix should not include the trailing colon (e.g., "vault" not "vault:").
//
// If a resolver is already registered for the prefix, it is replaced and
// a warning is logged.
func (r *Registry) Register(prefix string, resolver PropertyResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resolvers[prefix]; exists {
		log.Warn().Msgf("Overriding existing property resolver for prefix %q", prefix)
	}
	r.resolvers[prefix] = resolver
}

// Unregister removes the resolver for a specific prefix.
func (r *Registry) Unregister(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resolvers, prefix)
}

// GetResolver returns the resolver registered for a prefix, or nil.
func (r *Registry) GetResolver(prefix string) PropertyResolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolvers[prefix]
}

// ListPrefixes returns the registered prefixes, sorted.
func (r *Registry) ListPrefixes() []string {
	r.mu.RLock()
	prefixes := maps.Keys(r.resolvers)
	r.mu.RUnlock()
	slices.Sort(prefixes)
	return prefixes
}

// Resolve resolves a property in the format "prefix:key" or just "key"
// (defaults to env).
//
// Examples:
//   - "vault:MAPS_KEY" -> Uses Vault resolver
//   - "dotenv:ANDROID_MAPS_KEY" -> Uses the project env file
//   - "PORT" -> Uses Environment resolver (implicit, no prefix)
func (r *Registry) Resolve(property string) (string, error) {
	prefix, key := parseProperty(property)
	return r.Lookup(prefix, key)
}

// Lookup resolves key with the resolver registered for prefix.
func (r *Registry) Lookup(prefix, key string) (string, error) {
	resolver := r.GetResolver(prefix)
	if resolver == nil {
		return "", errors.Errorf("no resolver registered for prefix %q", prefix)
	}

	value, err := resolver.Resolve(key)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve property %q using %s resolver", prefix+":"+key, resolver.Name())
	}
	return value, nil
}

// Register registers a resolver in the Global registry.
func Register(prefix string, resolver PropertyResolver) {
	Global.Register(prefix, resolver)
}

// Unregister removes a resolver from the Global registry.
func Unregister(prefix string) {
	Global.Unregister(prefix)
}

// GetResolver returns the resolver registered for prefix in the Global registry.
func GetResolver(prefix string) PropertyResolver {
	return Global.GetResolver(prefix)
}

// ListPrefixes lists the prefixes of the Global registry.
func ListPrefixes() []string {
	return Global.ListPrefixes()
}

// Resolve resolves a property with the Global registry.
func Resolve(property string) (string, error) {
	return Global.Resolve(property)
}

// parseProperty splits a property string into prefix and key.
// Only the first colon separates; "custom:db:password" -> ("custom", "db:password").
func parseProperty(property string) (prefix string, key string) {
	prefix, key, found := strings.Cut(property, ":")
	if !found {
		return DefaultPrefix, property
	}
	return prefix, key
}
