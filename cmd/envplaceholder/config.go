package main

import (
	"path/filepath"

	"github.com/animalet/envplaceholder/pkg/config"
	"github.com/animalet/envplaceholder/pkg/envfile"
	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/animalet/envplaceholder/pkg/secrets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// loadConfig reads the configuration file and binds it to registry. Providers
// are registered later by registerSecretProviders.
func loadConfig(configPath string, registry *secrets.Registry) (*config.Config, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration file")
	}
	return cfg.WithRegistry(registry), nil
}

// registerSecretProviders registers every configured secret provider. A
// provider's own section may reference the ones registered before it.
func registerSecretProviders(cfg *config.Config, registry *secrets.Registry) error {
	fileLoader, err := config.GetClient[secrets.FileConfig, *secrets.FileSecretLoader](cfg, "file")
	if err != nil {
		return errors.Wrap(err, "failed to load or create file secret provider")
	}
	if fileLoader != nil {
		register(registry, "file", *fileLoader)
	}

	vaultCfg, err := config.Get[secrets.VaultConfig](cfg, "vault")
	if err != nil {
		return errors.Wrap(err, "failed to load Vault configuration")
	}
	if vaultCfg != nil {
		client, err := vaultCfg.CreateClient()
		if err != nil {
			return errors.Wrap(err, "failed to create Vault client")
		}
		register(registry, "vault", secrets.NewVaultSecretLoader(client, vaultCfg.Path))
	}

	awsCfg, err := config.Get[secrets.AWSConfig](cfg, "aws")
	if err != nil {
		return errors.Wrap(err, "failed to load AWS Secrets Manager configuration")
	}
	if awsCfg != nil {
		client, err := awsCfg.CreateClient()
		if err != nil {
			return errors.Wrap(err, "failed to create AWS Secrets Manager client")
		}
		register(registry, "aws", secrets.NewAWSSecretLoader(client, awsCfg.SecretName))
	}

	redisLoader, err := config.GetClient[secrets.RedisSourceConfig, *secrets.RedisSecretLoader](cfg, "redis")
	if err != nil {
		return errors.Wrap(err, "failed to load or create Redis secret provider")
	}
	if redisLoader != nil {
		register(registry, "redis", *redisLoader)
	}

	memcachedLoader, err := config.GetClient[secrets.MemcachedSourceConfig, *secrets.MemcachedSecretLoader](cfg, "memcached")
	if err != nil {
		return errors.Wrap(err, "failed to load or create Memcached secret provider")
	}
	if memcachedLoader != nil {
		register(registry, "memcached", *memcachedLoader)
	}

	postgresLoader, err := config.GetClient[secrets.PostgresSourceConfig, *secrets.PostgresSecretLoader](cfg, "postgres")
	if err != nil {
		return errors.Wrap(err, "failed to load or create PostgreSQL secret provider")
	}
	if postgresLoader != nil {
		register(registry, "postgres", *postgresLoader)
	}
	return nil
}

func register(registry *secrets.Registry, prefix string, resolver secrets.PropertyResolver) {
	registry.Register(prefix, resolver)
	log.Debug().Str("prefix", prefix).Str("resolver", resolver.Name()).Msg("Secret provider registered")
}

// registerDotEnv loads the env file of the build and exposes it as the
// "dotenv" prefix.
func registerDotEnv(registry *secrets.Registry, projectRoot, envFile string) *envfile.Properties {
	if envFile == "" {
		envFile = placeholder.DefaultEnvFile
	}
	path := envFilePath(projectRoot, envFile)
	props := envfile.Load(path)
	register(registry, "dotenv", secrets.NewDotEnvLoader(props, path))
	return props
}

func envFilePath(projectRoot, envFile string) string {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		root = projectRoot
	}
	return envfile.Resolve(root, envFile)
}
