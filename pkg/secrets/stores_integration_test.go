//go:build integration

package secrets_test

import (
	"context"
	"time"

	"github.com/animalet/envplaceholder/pkg/database"
	"github.com/animalet/envplaceholder/pkg/secrets"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var _ = Describe("Redis store integration", func() {
	It("should resolve keys written to a live Redis", func() {
		cfg := secrets.RedisSourceConfig{
			RedisConfig: database.RedisConfig{
				Address:     "localhost:6379",
				Username:    "redisuser",
				Password:    "redispass",
				MaxIdle:     1,
				IdleTimeout: time.Minute,
			},
			KeyPrefix: "envplaceholder:",
		}
		pool, err := cfg.RedisConfig.CreateClient()
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		conn := pool.Get()
		_, err = conn.Do("SET", "envplaceholder:ANDROID_MAPS_KEY", "from-redis")
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.Close()).To(Succeed())

		loader := secrets.NewRedisSecretLoader(pool, cfg.KeyPrefix)
		Expect(loader.Resolve("ANDROID_MAPS_KEY")).To(Equal("from-redis"))
	})
})

var _ = Describe("Postgres store integration", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:15-alpine",
			postgres.WithDatabase("build"),
			postgres.WithUsername("ci"),
			postgres.WithPassword("cipass"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if container != nil {
			Expect(container.Terminate(ctx)).To(Succeed())
		}
	})

	It("should resolve keys from a key/value table", func() {
		host, err := container.Host(ctx)
		Expect(err).NotTo(HaveOccurred())
		port, err := container.MappedPort(ctx, "5432/tcp")
		Expect(err).NotTo(HaveOccurred())

		cfg := secrets.PostgresSourceConfig{
			PostgresConfig: database.PostgresConfig{
				Host:     host,
				Port:     uint16(port.Int()),
				Database: "build",
				User:     "ci",
				Password: "cipass",
				SSLMode:  "disable",
			},
			Table: "build_secrets",
		}
		pool, err := cfg.PostgresConfig.CreateClient()
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		_, err = pool.Exec(ctx, `CREATE TABLE build_secrets (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO build_secrets (key, value) VALUES ($1, $2)`, "ANDROID_MAPS_KEY", "from-postgres")
		Expect(err).NotTo(HaveOccurred())

		loader := secrets.NewPostgresSecretLoader(pool, cfg.Table, "", "")
		Expect(loader.Resolve("ANDROID_MAPS_KEY")).To(Equal("from-postgres"))
		_, err = loader.Resolve("MISSING")
		Expect(err).To(HaveOccurred())
	})
})
