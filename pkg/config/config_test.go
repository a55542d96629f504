package config_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/animalet/envplaceholder/pkg/android"
	"github.com/animalet/envplaceholder/pkg/config"
	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/animalet/envplaceholder/pkg/secrets"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"
)

type mockLoader map[string]string

func (m mockLoader) Resolve(key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", errors.New("secret not found")
}

func (m mockLoader) Name() string {
	return "mock"
}

type endpoint struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

func (e endpoint) Validate() error {
	if e.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func (e endpoint) CreateClient() (string, error) {
	if e.Host == "fail" {
		return "", errors.New("connection refused")
	}
	return e.Host + ":" + e.Token, nil
}

const yamlConfig = `
android:
  namespace: org.acme.maps
  min_sdk: 24
  build_types:
    release:
      signing_config: upload
  placeholders:
    - placeholder: GOOGLE_MAPS_API_KEY
      key: ANDROID_MAPS_KEY
      source: mock
endpoint:
  host: localhost
  port: 8080
  token: ${mock:token}
  timeout: 5s
broken:
  host: localhost
`

const tomlConfig = `
[android]
namespace = "org.acme.maps"
min_sdk = 24

[android.build_types.release]
signing_config = "upload"

[[android.placeholders]]
placeholder = "GOOGLE_MAPS_API_KEY"
key = "ANDROID_MAPS_KEY"
source = "mock"

[endpoint]
host = "localhost"
port = 8080
token = "${mock:token}"
timeout = "5s"

[broken]
host = "localhost"
`

const hclConfig = `
android {
  namespace = "org.acme.maps"
  min_sdk   = 24

  build_types "release" {
    signing_config = "upload"
  }

  placeholders = [
    {
      placeholder = "GOOGLE_MAPS_API_KEY"
      key         = "ANDROID_MAPS_KEY"
      source      = "mock"
    },
  ]
}

endpoint {
  host    = "localhost"
  port    = 8080
  token   = "$${mock:token}"
  timeout = "5s"
}

broken {
  host = "localhost"
}
`

var _ = Describe("Config", func() {
	var (
		registry *secrets.Registry
		dir      string
	)

	BeforeEach(func() {
		registry = secrets.NewRegistry()
		registry.Register("mock", mockLoader{"token": "s3cr3t"})
		dir = GinkgoT().TempDir()
	})

	load := func(name, content string) *config.Config {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		cfg, err := config.NewConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Path()).To(Equal(path))
		return cfg.WithRegistry(registry)
	}

	DescribeTable("formats",
		func(name, content string) {
			cfg := load(name, content)
			Expect(cfg.Keys()).To(Equal([]string{"android", "broken", "endpoint"}))

			build, err := config.Decode[android.BuildConfig](cfg, "android")
			Expect(err).NotTo(HaveOccurred())
			Expect(build.Namespace).To(Equal("org.acme.maps"))
			Expect(build.MinSdk).To(Equal(24))
			Expect(build.BuildTypes).To(Equal(map[string]android.BuildType{"release": {SigningConfig: "upload"}}))
			Expect(build.Placeholders).To(Equal([]placeholder.Binding{
				{Placeholder: "GOOGLE_MAPS_API_KEY", Key: "ANDROID_MAPS_KEY", Source: "mock"},
			}))

			ep, err := config.Get[endpoint](cfg, "endpoint")
			Expect(err).NotTo(HaveOccurred())
			Expect(*ep).To(Equal(endpoint{Host: "localhost", Port: 8080, Token: "s3cr3t", Timeout: 5 * time.Second}))
		},
		Entry("YAML", "build.yaml", yamlConfig),
		Entry("YML", "build.yml", yamlConfig),
		Entry("TOML", "build.toml", tomlConfig),
		Entry("HCL", "build.hcl", hclConfig),
	)

	Context("Get", func() {
		It("should return nil for absent sections", func() {
			cfg := load("build.yaml", yamlConfig)
			ep, err := config.Get[endpoint](cfg, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(ep).To(BeNil())
			Expect(cfg.Has("missing")).To(BeFalse())
		})

		It("should validate sections", func() {
			_, err := config.Get[endpoint](load("build.yaml", yamlConfig), "broken")
			Expect(err).To(MatchError(ContainSubstring(`section "broken" is invalid: port is required`)))
		})

		It("should report expansion failures", func() {
			cfg := load("build.yaml", "endpoint:\n  port: 1\n  token: ${mock:unknown}\n")
			_, err := config.Get[endpoint](cfg, "endpoint")
			Expect(err).To(MatchError(ContainSubstring("secret not found")))
		})

		It("should report type mismatches", func() {
			cfg := load("build.yaml", "endpoint:\n  port: not-a-number\n")
			_, err := config.Get[endpoint](cfg, "endpoint")
			Expect(err).To(MatchError(ContainSubstring(`error decoding section "endpoint"`)))
		})

		It("should decode secrets source sections", func() {
			cfg := load("build.yaml", "file:\n  secrets_dir: "+dir+"\n")
			fileCfg, err := config.Get[secrets.FileConfig](cfg, "file")
			Expect(err).NotTo(HaveOccurred())
			Expect(fileCfg.SecretsDir).To(Equal(dir))
		})
	})

	Context("GetClient", func() {
		It("should create the client", func() {
			client, err := config.GetClient[endpoint, string](load("build.yaml", yamlConfig), "endpoint")
			Expect(err).NotTo(HaveOccurred())
			Expect(*client).To(Equal("localhost:s3cr3t"))
		})

		It("should return nil for absent sections", func() {
			client, err := config.GetClient[endpoint, string](load("build.yaml", yamlConfig), "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(client).To(BeNil())
		})

		It("should wrap client errors", func() {
			cfg := load("build.yaml", "endpoint:\n  host: fail\n  port: 1\n")
			_, err := config.GetClient[endpoint, string](cfg, "endpoint")
			Expect(err).To(MatchError(ContainSubstring("connection refused")))
		})
	})

	Context("NewConfig", func() {
		It("should fail on missing files", func() {
			_, err := config.NewConfig(filepath.Join(dir, "missing.yaml"))
			Expect(err).To(MatchError(ContainSubstring("error reading config file")))
		})

		It("should reject unknown extensions", func() {
			path := filepath.Join(dir, "build.ini")
			Expect(os.WriteFile(path, []byte("a=b"), 0o600)).To(Succeed())
			_, err := config.NewConfig(path)
			Expect(err).To(MatchError(ContainSubstring(`unsupported config format ".ini"`)))
		})

		It("should report syntax errors", func() {
			for name, content := range map[string]string{
				"bad.yaml": "android: [unclosed",
				"bad.toml": "[android\nnamespace =",
				"bad.hcl":  "android {\n  namespace = \n",
			} {
				path := filepath.Join(dir, name)
				Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
				_, err := config.NewConfig(path)
				Expect(err).To(HaveOccurred(), name)
			}
		})

		It("should accept empty files", func() {
			cfg := load("empty.yaml", "")
			Expect(cfg.Keys()).To(BeEmpty())
		})
	})
})
