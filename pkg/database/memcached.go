package database

import (
	"net"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

// MemcachedConfig holds the Memcached servers a CI setup publishes build
// secrets to. Zero Timeout and MaxIdleConns mean the library defaults.
type MemcachedConfig struct {
	Servers      []string      `yaml:"servers"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxIdleConns int           `yaml:"max_idle_conns,omitempty"`
}

// Validate checks the Memcached settings. Every server must be a distinct
// host:port address.
func (m MemcachedConfig) Validate() error {
	if len(m.Servers) == 0 {
		return errors.New("memcached servers must list at least one address")
	}
	seen := make(map[string]struct{}, len(m.Servers))
	for i, server := range m.Servers {
		host, port, err := net.SplitHostPort(server)
		if err != nil {
			return errors.Wrapf(err, "memcached server %d (%q) is not a host:port address", i, server)
		}
		if host == "" || port == "" {
			return errors.Errorf("memcached server %d (%q) needs both host and port", i, server)
		}
		if _, dup := seen[server]; dup {
			return errors.Errorf("memcached server %q is listed more than once", server)
		}
		seen[server] = struct{}{}
	}
	if m.Timeout < 0 {
		return errors.New("memcached timeout must be non-negative")
	}
	if m.MaxIdleConns < 0 {
		return errors.New("memcached max_idle_conns must be non-negative")
	}
	return nil
}

// client builds the client without contacting any server.
func (m MemcachedConfig) client() *memcache.Client {
	c := memcache.New(m.Servers...)
	if m.Timeout > 0 {
		c.Timeout = m.Timeout
	}
	if m.MaxIdleConns > 0 {
		c.MaxIdleConns = m.MaxIdleConns
	}
	return c
}

// CreateClient validates the config and returns a client once every server
// answers a ping.
func (m MemcachedConfig) CreateClient() (*memcache.Client, error) {
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Memcached configuration")
	}
	c := m.client()
	if err := c.Ping(); err != nil {
		return nil, errors.Wrapf(err, "failed to reach Memcached servers %v", m.Servers)
	}
	return c, nil
}
