package secrets

import (
	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// VaultConfig holds configuration for connecting to HashiCorp Vault
type VaultConfig struct {
	Address   string `yaml:"address"`
	Token     string `yaml:"token"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace,omitempty"`
}

// Validate checks if the VaultConfig has all required fields set
func (v VaultConfig) Validate() error {
	if v.Address == "" {
		return errors.New("Vault address is required")
	}
	if v.Token == "" {
		return errors.New("Vault token is required")
	}
	if v.Path == "" {
		return errors.New("Vault path is required")
	}
	return nil
}

// CreateClient creates a Vault API client from this config.
func (v VaultConfig) CreateClient() (*api.Client, error) {
	if err := v.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Vault configuration")
	}

	config := api.DefaultConfig()
	config.Address = v.Address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Vault client")
	}
	client.SetToken(v.Token)
	if v.Namespace != "" {
		client.SetNamespace(v.Namespace)
	}
	return client, nil
}

// LogicalReader is the part of the Vault logical backend the loader needs.
// *api.Logical implements it.
type LogicalReader interface {
	Read(path string) (*api.Secret, error)
}

// VaultSecretLoader retrieves keys from a single Vault secret.
// Both KV v1 and KV v2 secret engines are supported.
//
//	fallback: ${vault:ANDROID_MAPS_KEY}
type VaultSecretLoader struct {
	logical LogicalReader
	path    string
}

// NewVaultSecretLoader creates a loader reading from path with the given client.
func NewVaultSecretLoader(client *api.Client, path string) *VaultSecretLoader {
	return NewVaultSecretLoaderWithReader(client.Logical(), path)
}

// NewVaultSecretLoaderWithReader creates a loader on top of any LogicalReader.
func NewVaultSecretLoaderWithReader(logical LogicalReader, path string) *VaultSecretLoader {
	return &VaultSecretLoader{logical: logical, path: path}
}

// Resolve reads the secret and extracts key from it.
func (v *VaultSecretLoader) Resolve(key string) (string, error) {
	secret, err := v.logical.Read(v.path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from Vault path %q", v.path)
	}
	if secret == nil || secret.Data == nil {
		return "", errors.Errorf("no secret found at Vault path %q", v.path)
	}

	data := secret.Data
	if nested, present := secret.Data["data"]; present && nested != nil {
		// KV v2 wraps the payload
		m, ok := nested.(map[string]interface{})
		if !ok {
			return "", errors.Errorf("unexpected data format in KV v2 secret at %q", v.path)
		}
		data = m
	}

	value, ok := data[key].(string)
	if !ok {
		return "", errors.Errorf("secret %q not found in Vault at path %q", key, v.path)
	}
	log.Debug().
		Str("secret_name", key).
		Str("vault_path", v.path).
		Msg("Retrieved secret from Vault")
	return value, nil
}

// Name returns the resolver name
func (v *VaultSecretLoader) Name() string {
	return "Vault"
}
