// Package android models the Android application module declarations of a
// Flutter project and evaluates them into manifest placeholder values.
package android

import (
	"regexp"

	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	DefaultNamespace     = "com.example.jomjalan"
	DefaultNdkVersion    = "27.0.12077973"
	DefaultJavaVersion   = 11
	DefaultCompileSdk    = 35
	DefaultMinSdk        = 21
	DefaultTargetSdk     = 35
	DefaultSigningConfig = "debug"

	// ApplicationIDPlaceholder is always available to manifests.
	ApplicationIDPlaceholder = "applicationId"
)

var (
	packageName          = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
	supportedJavaVersion = []int{8, 11, 17, 21}
)

// BuildType is a variant of the application, such as "debug" or "release".
type BuildType struct {
	// SigningConfig names the signing profile the variant is signed with.
	SigningConfig string `yaml:"signing_config"`
	Minify        bool   `yaml:"minify,omitempty"`
}

// BuildConfig is the android block of the application module.
type BuildConfig struct {
	Namespace     string               `yaml:"namespace"`
	ApplicationID string               `yaml:"application_id"`
	CompileSdk    int                  `yaml:"compile_sdk"`
	MinSdk        int                  `yaml:"min_sdk"`
	TargetSdk     int                  `yaml:"target_sdk"`
	NdkVersion    string               `yaml:"ndk_version"`
	JavaVersion   int                  `yaml:"java_version"`
	VersionCode   int                  `yaml:"version_code,omitempty"`
	VersionName   string               `yaml:"version_name,omitempty"`
	BuildTypes    map[string]BuildType `yaml:"build_types"`
	// EnvFile is the env file location relative to the project root.
	EnvFile      string                `yaml:"env_file"`
	Placeholders []placeholder.Binding `yaml:"placeholders"`
}

// Defaults returns the declarations of a freshly generated Flutter app, with
// the maps key read from ../.env and release builds signed with the debug keys.
func Defaults() BuildConfig {
	return BuildConfig{
		Namespace:     DefaultNamespace,
		ApplicationID: DefaultNamespace,
		CompileSdk:    DefaultCompileSdk,
		MinSdk:        DefaultMinSdk,
		TargetSdk:     DefaultTargetSdk,
		NdkVersion:    DefaultNdkVersion,
		JavaVersion:   DefaultJavaVersion,
		BuildTypes: map[string]BuildType{
			"release": {SigningConfig: DefaultSigningConfig},
		},
		EnvFile:      placeholder.DefaultEnvFile,
		Placeholders: placeholder.DefaultBindings(),
	}
}

// WithDefaults returns c with every unset field taken from Defaults. The
// application id falls back to the namespace before the default.
func (c BuildConfig) WithDefaults() BuildConfig {
	d := Defaults()
	if c.Namespace == "" {
		c.Namespace = d.Namespace
	}
	if c.ApplicationID == "" {
		c.ApplicationID = c.Namespace
	}
	if c.CompileSdk == 0 {
		c.CompileSdk = d.CompileSdk
	}
	if c.MinSdk == 0 {
		c.MinSdk = d.MinSdk
	}
	if c.TargetSdk == 0 {
		c.TargetSdk = d.TargetSdk
	}
	if c.NdkVersion == "" {
		c.NdkVersion = d.NdkVersion
	}
	if c.JavaVersion == 0 {
		c.JavaVersion = d.JavaVersion
	}
	if len(c.BuildTypes) == 0 {
		c.BuildTypes = d.BuildTypes
	}
	if c.EnvFile == "" {
		c.EnvFile = d.EnvFile
	}
	if len(c.Placeholders) == 0 {
		c.Placeholders = d.Placeholders
	}
	return c
}

// Validate checks the declarations Gradle would reject.
func (c BuildConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("namespace is required")
	}
	if !packageName.MatchString(c.Namespace) {
		return errors.Errorf("namespace %q is not a valid package name", c.Namespace)
	}
	if c.ApplicationID != "" && !packageName.MatchString(c.ApplicationID) {
		return errors.Errorf("application id %q is not a valid package name", c.ApplicationID)
	}
	if c.MinSdk <= 0 || c.TargetSdk <= 0 || c.CompileSdk <= 0 {
		return errors.Errorf("SDK levels must be positive (min %d, target %d, compile %d)", c.MinSdk, c.TargetSdk, c.CompileSdk)
	}
	if c.MinSdk > c.TargetSdk {
		return errors.Errorf("min SDK %d is above target SDK %d", c.MinSdk, c.TargetSdk)
	}
	if c.TargetSdk > c.CompileSdk {
		return errors.Errorf("target SDK %d is above compile SDK %d", c.TargetSdk, c.CompileSdk)
	}
	if !slices.Contains(supportedJavaVersion, c.JavaVersion) {
		return errors.Errorf("unsupported Java version %d", c.JavaVersion)
	}
	if c.VersionCode < 0 {
		return errors.Errorf("version code %d is negative", c.VersionCode)
	}

	names := maps.Keys(c.BuildTypes)
	slices.Sort(names)
	for _, name := range names {
		if c.BuildTypes[name].SigningConfig == "" {
			return errors.Errorf("build type %q has no signing config", name)
		}
	}

	if err := placeholder.ValidateBindings(c.Placeholders); err != nil {
		return err
	}
	for _, b := range c.Placeholders {
		if b.Placeholder == ApplicationIDPlaceholder {
			return errors.Errorf("placeholder %q is reserved", ApplicationIDPlaceholder)
		}
	}
	return nil
}
