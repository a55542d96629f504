package android_test

import (
	"os"
	"path/filepath"

	"github.com/animalet/envplaceholder/pkg/android"
	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/animalet/envplaceholder/pkg/secrets"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Evaluate", func() {
	var projectRoot string

	BeforeEach(func() {
		parent := GinkgoT().TempDir()
		projectRoot = filepath.Join(parent, "android")
		Expect(os.Mkdir(projectRoot, 0o755)).To(Succeed())
	})

	writeFile := func(path, content string) {
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	}

	It("should resolve an empty maps key without env file", func() {
		eval, err := android.Evaluate(projectRoot, android.Defaults())
		Expect(err).NotTo(HaveOccurred())
		Expect(eval.Placeholders()).To(Equal(placeholder.Map{"GOOGLE_MAPS_API_KEY": ""}))
		Expect(eval.Placeholders().Names()).To(Equal([]string{"GOOGLE_MAPS_API_KEY"}))
		Expect(eval.EnvFile()).To(Equal(filepath.Join(filepath.Dir(projectRoot), ".env")))
		Expect(eval.ProjectRoot()).To(Equal(projectRoot))
	})

	It("should resolve the maps key from ../.env", func() {
		writeFile(filepath.Join(projectRoot, "..", ".env"), "# keys\nANDROID_MAPS_KEY = abc123\nANDROID_MAPS_KEY=xyz789\nOTHER=1\n")
		eval, err := android.Evaluate(projectRoot, android.BuildConfig{})
		Expect(err).NotTo(HaveOccurred())
		v, ok := eval.Placeholder("GOOGLE_MAPS_API_KEY")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("xyz789"))
		Expect(eval.Placeholders().Names()).To(Equal([]string{"GOOGLE_MAPS_API_KEY"}))
		_, ok = eval.Placeholder("applicationId")
		Expect(ok).To(BeFalse())
	})

	It("should complete the config from local.properties", func() {
		writeFile(filepath.Join(projectRoot, "local.properties"), "flutter.versionCode=12\nflutter.versionName=2.0.0\nsdk.dir=/opt/android\n")
		eval, err := android.Evaluate(projectRoot, android.BuildConfig{Namespace: "org.acme.maps"})
		Expect(err).NotTo(HaveOccurred())
		cfg := eval.Config()
		Expect(cfg.VersionCode).To(Equal(12))
		Expect(cfg.VersionName).To(Equal("2.0.0"))
		Expect(cfg.MinSdk).To(Equal(android.DefaultMinSdk))
		Expect(eval.Placeholders()).NotTo(HaveKey("applicationId"))
		Expect(eval.ManifestValues()).To(Equal(placeholder.Map{
			"GOOGLE_MAPS_API_KEY": "",
			"applicationId":       "org.acme.maps",
		}))
	})

	It("should fail only on invalid declarations", func() {
		_, err := android.Evaluate(projectRoot, android.BuildConfig{JavaVersion: 10})
		Expect(err).To(MatchError(ContainSubstring("invalid build config")))
	})

	It("should pass resolver options through", func() {
		registry := secrets.NewRegistry()
		Expect(os.Setenv("ENVPLACEHOLDER_TEST_MAPS_KEY", "from-env")).To(Succeed())
		DeferCleanup(os.Unsetenv, "ENVPLACEHOLDER_TEST_MAPS_KEY")

		cfg := android.Defaults()
		cfg.Placeholders = []placeholder.Binding{{
			Placeholder: "GOOGLE_MAPS_API_KEY",
			Key:         "ENVPLACEHOLDER_TEST_MAPS_KEY",
			Source:      "env",
		}}
		eval, err := android.Evaluate(projectRoot, cfg, placeholder.WithRegistry(registry))
		Expect(err).NotTo(HaveOccurred())
		Expect(eval.Placeholders()).To(HaveKeyWithValue("GOOGLE_MAPS_API_KEY", "from-env"))
	})

	It("should be isolated from its input and its callers", func() {
		cfg := android.Defaults()
		eval, err := android.Evaluate(projectRoot, cfg)
		Expect(err).NotTo(HaveOccurred())

		cfg.BuildTypes["release"] = android.BuildType{SigningConfig: "upload"}
		cfg.Placeholders[0].Key = "CHANGED"

		got := eval.Config()
		got.BuildTypes["release"] = android.BuildType{SigningConfig: "other"}
		m := eval.Placeholders()
		m["GOOGLE_MAPS_API_KEY"] = "tampered"

		Expect(eval.Config().BuildTypes["release"].SigningConfig).To(Equal("debug"))
		Expect(eval.Config().Placeholders[0].Key).To(Equal("ANDROID_MAPS_KEY"))
		Expect(eval.Placeholders()["GOOGLE_MAPS_API_KEY"]).To(BeEmpty())
	})
})
