package secrets

import (
	"context"
	"regexp"
	"time"

	"github.com/animalet/envplaceholder/pkg/database"
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/gomodule/redigo/redis"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultQueryTimeout = 10 * time.Second

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RedisSourceConfig configures the "redis" resolver: key K is read with GET <KeyPrefix>K.
type RedisSourceConfig struct {
	database.RedisConfig `yaml:",inline"`
	KeyPrefix            string `yaml:"key_prefix,omitempty"`
}

// Validate checks the connection settings.
func (r RedisSourceConfig) Validate() error {
	return r.RedisConfig.Validate()
}

// CreateClient returns a loader backed by a new connection pool.
func (r RedisSourceConfig) CreateClient() (*RedisSecretLoader, error) {
	pool, err := r.RedisConfig.CreateClient()
	if err != nil {
		return nil, err
	}
	return NewRedisSecretLoader(pool, r.KeyPrefix), nil
}

// ConnGetter hands out Redis connections. *redis.Pool implements it.
type ConnGetter interface {
	Get() redis.Conn
}

// RedisSecretLoader reads string values from Redis.
//
//	fallback: ${redis:ANDROID_MAPS_KEY}
type RedisSecretLoader struct {
	pool   ConnGetter
	prefix string
}

// NewRedisSecretLoader creates a loader that prepends prefix to every key.
func NewRedisSecretLoader(pool ConnGetter, prefix string) *RedisSecretLoader {
	return &RedisSecretLoader{pool: pool, prefix: prefix}
}

// Resolve runs GET for the prefixed key. A missing key is an error.
func (r *RedisSecretLoader) Resolve(key string) (string, error) {
	conn := r.pool.Get()
	defer func() { _ = conn.Close() }()

	value, err := redis.String(conn.Do("GET", r.prefix+key))
	if errors.Is(err, redis.ErrNil) {
		return "", errors.Errorf("key %q not found in Redis", r.prefix+key)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read key %q from Redis", r.prefix+key)
	}
	log.Debug().Str("key", r.prefix+key).Msg("Retrieved value from Redis")
	return value, nil
}

// Name returns the resolver name
func (r *RedisSecretLoader) Name() string {
	return "Redis"
}

// MemcachedSourceConfig configures the "memcached" resolver.
type MemcachedSourceConfig struct {
	database.MemcachedConfig `yaml:",inline"`
	KeyPrefix                string `yaml:"key_prefix,omitempty"`
}

// Validate checks the connection settings.
func (m MemcachedSourceConfig) Validate() error {
	return m.MemcachedConfig.Validate()
}

// CreateClient connects to Memcached and returns a loader.
func (m MemcachedSourceConfig) CreateClient() (*MemcachedSecretLoader, error) {
	client, err := m.MemcachedConfig.CreateClient()
	if err != nil {
		return nil, err
	}
	return NewMemcachedSecretLoader(client, m.KeyPrefix), nil
}

// ItemGetter fetches Memcached items. *memcache.Client implements it.
type ItemGetter interface {
	Get(key string) (*memcache.Item, error)
}

// MemcachedSecretLoader reads values from Memcached.
type MemcachedSecretLoader struct {
	client ItemGetter
	prefix string
}

// NewMemcachedSecretLoader creates a loader that prepends prefix to every key.
func NewMemcachedSecretLoader(client ItemGetter, prefix string) *MemcachedSecretLoader {
	return &MemcachedSecretLoader{client: client, prefix: prefix}
}

// Resolve fetches the prefixed key. A cache miss is an error.
func (m *MemcachedSecretLoader) Resolve(key string) (string, error) {
	item, err := m.client.Get(m.prefix + key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", errors.Errorf("key %q not found in Memcached", m.prefix+key)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read key %q from Memcached", m.prefix+key)
	}
	log.Debug().Str("key", m.prefix+key).Msg("Retrieved value from Memcached")
	return string(item.Value), nil
}

// Name returns the resolver name
func (m *MemcachedSecretLoader) Name() string {
	return "Memcached"
}

// PostgresSourceConfig configures the "postgres" resolver, which reads a
// two-column key/value table.
type PostgresSourceConfig struct {
	database.PostgresConfig `yaml:",inline"`
	Table                   string `yaml:"table"`
	KeyColumn               string `yaml:"key_column,omitempty"`
	ValueColumn             string `yaml:"value_column,omitempty"`
}

// Validate checks connection settings and that table and columns are plain identifiers.
func (p PostgresSourceConfig) Validate() error {
	if err := p.PostgresConfig.Validate(); err != nil {
		return err
	}
	if p.Table == "" {
		return errors.New("postgres table must be set and non-empty")
	}
	for _, name := range []string{p.Table, p.KeyColumn, p.ValueColumn} {
		if name != "" && !identifier.MatchString(name) {
			return errors.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}

// CreateClient connects to PostgreSQL and returns a loader.
func (p PostgresSourceConfig) CreateClient() (*PostgresSecretLoader, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pool, err := p.PostgresConfig.CreateClient()
	if err != nil {
		return nil, err
	}
	return NewPostgresSecretLoader(pool, p.Table, p.KeyColumn, p.ValueColumn), nil
}

// RowQuerier runs single-row queries. *pgxpool.Pool and *pgx.Conn implement it.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSecretLoader reads values from a key/value table.
type PostgresSecretLoader struct {
	db    RowQuerier
	query string
	table string
}

// NewPostgresSecretLoader creates a loader for table. Empty column names
// default to "key" and "value".
func NewPostgresSecretLoader(db RowQuerier, table, keyColumn, valueColumn string) *PostgresSecretLoader {
	if keyColumn == "" {
		keyColumn = "key"
	}
	if valueColumn == "" {
		valueColumn = "value"
	}
	query := "SELECT " + pgx.Identifier{valueColumn}.Sanitize() +
		" FROM " + pgx.Identifier{table}.Sanitize() +
		" WHERE " + pgx.Identifier{keyColumn}.Sanitize() + " = $1"
	return &PostgresSecretLoader{db: db, query: query, table: table}
}

// Resolve selects the value stored for key.
func (p *PostgresSecretLoader) Resolve(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	var value string
	err := p.db.QueryRow(ctx, p.query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Errorf("key %q not found in table %q", key, p.table)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to query key %q from table %q", key, p.table)
	}
	log.Debug().Str("key", key).Str("table", p.table).Msg("Retrieved value from PostgreSQL")
	return value, nil
}

// Name returns the resolver name
func (p *PostgresSecretLoader) Name() string {
	return "PostgreSQL"
}
