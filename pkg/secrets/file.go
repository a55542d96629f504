package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileConfig configures the "file" resolver.
type FileConfig struct {
	SecretsDir string `yaml:"secrets_dir"`
}

// Validate checks that the secrets directory exists and is a directory.
func (f FileConfig) Validate() error {
	if f.SecretsDir == "" {
		return errors.New("secrets_dir is required for file resolver")
	}

	info, err := os.Stat(f.SecretsDir)
	if os.IsNotExist(err) {
		return errors.Errorf("secrets_dir %q does not exist", f.SecretsDir)
	}
	if err != nil {
		return errors.Wrapf(err, "error accessing secrets_dir %q", f.SecretsDir)
	}
	if !info.IsDir() {
		return errors.Errorf("secrets_dir %q is not a directory", f.SecretsDir)
	}
	return nil
}

// CreateClient validates the config and returns the loader.
func (f FileConfig) CreateClient() (*FileSecretLoader, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return NewFileSecretLoader(f.SecretsDir), nil
}

// FileSecretLoader reads one value per file from a directory, the layout used
// by Docker and Kubernetes secrets and by CI secret mounts.
//
//	maps_key_source: ${file:android_maps_key}  # Reads <secretsDir>/android_maps_key
//
// File contents are trimmed of surrounding whitespace.
type FileSecretLoader struct {
	secretsDir string
}

// NewFileSecretLoader creates a loader rooted at secretsDir.
func NewFileSecretLoader(secretsDir string) *FileSecretLoader {
	return &FileSecretLoader{secretsDir: secretsDir}
}

// Resolve reads the file named key inside the secrets directory.
func (f *FileSecretLoader) Resolve(key string) (string, error) {
	if f.secretsDir == "" {
		return "", errors.New("no secrets directory configured")
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("no file specified for file secret")
	}
	if filepath.IsAbs(key) {
		return "", errors.New("invalid secret key: absolute paths not allowed")
	}

	root, err := filepath.Abs(f.secretsDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve secrets directory")
	}
	target := filepath.Join(root, filepath.Clean(key))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("invalid secret key: outside secrets directory")
	}

	// #nosec G304 -- target is confined to the secrets directory above
	content, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("secret %q not found", key)
		}
		return "", errors.Wrapf(err, "failed to read secret %q", key)
	}

	log.Debug().Str("file", target).Msg("Retrieved secret from file")
	return strings.TrimSpace(string(content)), nil
}

// Name returns the resolver name
func (f *FileSecretLoader) Name() string {
	return "File"
}
