// Package database holds connection settings for the shared key/value stores
// that CI setups use to distribute build secrets: Redis, Memcached and PostgreSQL.
package database

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// RedisConfig holds configuration options for a Redis connection pool
type RedisConfig struct {
	Address        string        `yaml:"address"`
	Username       string        `yaml:"username,omitempty"`
	Password       string        `yaml:"password,omitempty"`
	Database       int           `yaml:"database,omitempty"`
	MaxIdle        int           `yaml:"max_idle"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	TLS            *TLSConfig    `yaml:"tls,omitempty"`
}

// TLSConfig holds TLS configuration for Redis connections
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	CAFile             string `yaml:"ca_file"`
}

// Validate checks the Redis settings.
func (r RedisConfig) Validate() error {
	if r.Address == "" {
		return errors.New("redis address must be set and non-empty")
	}
	if r.MaxIdle < 0 {
		return errors.New("redis max_idle must be non-negative")
	}
	if r.IdleTimeout < 0 {
		return errors.New("redis idle_timeout must be non-negative")
	}
	if r.ConnectTimeout < 0 {
		return errors.New("redis connect_timeout must be non-negative")
	}
	if r.Database < 0 {
		return errors.New("redis database must be non-negative")
	}
	if r.TLS != nil && (r.TLS.CertFile == "") != (r.TLS.KeyFile == "") {
		return errors.New("both cert_file and key_file must be set together in TLS configuration")
	}
	return nil
}

// CreateClient validates the config and returns a connection pool.
// Connections are dialed lazily.
func (r RedisConfig) CreateClient() (*redis.Pool, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Redis configuration")
	}
	cfg := r
	return &redis.Pool{
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			return dialRedis(&cfg)
		},
	}, nil
}

func dialRedis(config *RedisConfig) (redis.Conn, error) {
	opts := []redis.DialOption{redis.DialDatabase(config.Database)}
	if config.Username != "" {
		opts = append(opts, redis.DialUsername(config.Username))
	}
	if config.Password != "" {
		opts = append(opts, redis.DialPassword(config.Password))
	}
	if config.ConnectTimeout > 0 {
		opts = append(opts, redis.DialConnectTimeout(config.ConnectTimeout))
	}

	if config.TLS != nil {
		tlsConfig, err := config.TLS.build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, redis.DialTLSConfig(tlsConfig), redis.DialUseTLS(true))
	}

	return redis.Dial("tcp", config.Address, opts...)
}

func (t *TLSConfig) build() (*tls.Config, error) {
	// #nosec G402 -- opt-in for self-signed CI instances
	tlsConfig := &tls.Config{InsecureSkipVerify: t.InsecureSkipVerify}

	if t.CAFile != "" {
		caCert, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read CA certificate %q", t.CAFile)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.Errorf("failed to parse CA certificate %q", t.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if t.CertFile != "" && t.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
