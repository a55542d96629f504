package database

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// PostgresConfig holds configuration options for a PostgreSQL connection pool
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            uint16        `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode,omitempty"`
	MaxConns        int32         `yaml:"max_conns,omitempty"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime,omitempty"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout,omitempty"`
}

// Validate checks if the PostgresConfig has all required fields set
func (p PostgresConfig) Validate() error {
	if p.Host == "" {
		return errors.New("postgres host must be set and non-empty")
	}
	if p.Port == 0 {
		return errors.New("postgres port must be set and non-zero")
	}
	if p.Database == "" {
		return errors.New("postgres database must be set and non-empty")
	}
	if p.User == "" {
		return errors.New("postgres user must be set and non-empty")
	}
	if p.SSLMode != "" && !validSSLModes[p.SSLMode] {
		return errors.Errorf("invalid ssl_mode %q, must be one of: disable, allow, prefer, require, verify-ca, verify-full", p.SSLMode)
	}
	if p.MaxConns < 0 {
		return errors.New("max_conns must be non-negative")
	}
	if p.MaxConnLifetime < 0 {
		return errors.New("max_conn_lifetime must be non-negative")
	}
	if p.ConnectTimeout < 0 {
		return errors.New("connect_timeout must be non-negative")
	}
	return nil
}

// CreateClient creates a connection pool and verifies it with a ping.
func (p PostgresConfig) CreateClient() (*pgxpool.Pool, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid PostgreSQL configuration")
	}

	poolConfig, err := pgxpool.ParseConfig(p.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse PostgreSQL connection string")
	}
	if p.MaxConns > 0 {
		poolConfig.MaxConns = p.MaxConns
	}
	if p.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = p.MaxConnLifetime
	}
	if p.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = p.ConnectTimeout
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping PostgreSQL database")
	}
	return pool, nil
}

// ConnectionString renders the config as a postgres:// URL. Credentials are
// escaped, so passwords may contain any character.
func (p PostgresConfig) ConnectionString() string {
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port))),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	if p.Password != "" {
		u.User = url.UserPassword(p.User, p.Password)
	} else {
		u.User = url.User(p.User)
	}
	return u.String()
}
