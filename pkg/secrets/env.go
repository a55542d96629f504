package secrets

import (
	"os"

	"github.com/animalet/envplaceholder/pkg/envfile"
	"github.com/rs/zerolog/log"
)

// EnvLoader resolves properties from environment variables.
// This is the default resolver when no prefix is specified.
//
// Example usage in config:
//
//	namespace: ${APP_NAMESPACE}       # Resolves from env (implicit)
//	namespace: ${env:APP_NAMESPACE}   # Resolves from env (explicit)
type EnvLoader struct{}

// NewEnvLoader creates a new environment variable resolver
func NewEnvLoader() *EnvLoader {
	return &EnvLoader{}
}

// Resolve retrieves an environment variable value.
// Missing variables resolve to the empty string, like os.Expand does.
func (e *EnvLoader) Resolve(key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		log.Warn().
			Str("env_var", key).
			Msg("Environment variable not set or empty - using empty string")
	} else {
		log.Debug().
			Str("env_var", key).
			Msg("Retrieved value from environment variable")
	}
	return value, nil
}

// Name returns the resolver name
func (e *EnvLoader) Name() string {
	return "Environment"
}

// DotEnvLoader resolves properties from a parsed env file.
//
// Example usage in config:
//
//	version_name: ${dotenv:APP_VERSION}
type DotEnvLoader struct {
	props *envfile.Properties
	path  string
}

// NewDotEnvLoader wraps already loaded properties. path is only used for logging.
func NewDotEnvLoader(props *envfile.Properties, path string) *DotEnvLoader {
	if props == nil {
		props = envfile.New()
	}
	return &DotEnvLoader{props: props, path: path}
}

// LoadDotEnv loads the env file at path and wraps it. A missing file gives
// a loader that resolves every key to the empty string.
func LoadDotEnv(path string) *DotEnvLoader {
	return NewDotEnvLoader(envfile.Load(path), path)
}

// Resolve returns the value of key in the env file, or the empty string.
func (d *DotEnvLoader) Resolve(key string) (string, error) {
	value, ok := d.props.Get(key)
	if !ok {
		log.Warn().
			Str("key", key).
			Str("path", d.path).
			Msg("Key not found in env file - using empty string")
		return "", nil
	}
	log.Debug().Str("key", key).Str("path", d.path).Msg("Retrieved value from env file")
	return value, nil
}

// Name returns the resolver name
func (d *DotEnvLoader) Name() string {
	return "DotEnv"
}
