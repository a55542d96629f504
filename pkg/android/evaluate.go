package android

import (
	"path/filepath"

	"github.com/animalet/envplaceholder/internal/snapshot"
	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Evaluation is the immutable outcome of evaluating a build config once.
type Evaluation struct {
	projectRoot  string
	envFile      string
	config       BuildConfig
	placeholders placeholder.Map
}

// Evaluate completes cfg from local.properties and Defaults, validates it and
// resolves its placeholders from the env file. Only validation can fail: env
// resolution always yields a value for every binding.
func Evaluate(projectRoot string, cfg BuildConfig, opts ...placeholder.Option) (*Evaluation, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid project root %q", projectRoot)
	}

	cfg = cfg.WithLocalProperties(LoadLocalProperties(root)).WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid build config")
	}

	frozen, err := snapshot.Copy(&cfg)
	if err != nil {
		return nil, err
	}

	resolver := placeholder.NewResolver(root, frozen.EnvFile, opts...)
	values := resolver.Resolve(frozen.Placeholders...)

	log.Debug().
		Str("project_root", root).
		Str("env_file", resolver.Path()).
		Strs("placeholders", values.Names()).
		Msg("Build evaluated")

	return &Evaluation{
		projectRoot:  root,
		envFile:      resolver.Path(),
		config:       *frozen,
		placeholders: values,
	}, nil
}

// ProjectRoot returns the absolute project root.
func (e *Evaluation) ProjectRoot() string {
	return e.projectRoot
}

// EnvFile returns the env file location the placeholders were read from.
func (e *Evaluation) EnvFile() string {
	return e.envFile
}

// Config returns a copy of the evaluated build config.
func (e *Evaluation) Config() BuildConfig {
	return *snapshot.MustCopy(&e.config)
}

// Placeholders returns a copy of the resolved placeholder values: one entry per
// binding and nothing else.
func (e *Evaluation) Placeholders() placeholder.Map {
	return e.placeholders.Clone()
}

// ManifestValues returns the values available when rendering a manifest
// template. On top of Placeholders it carries the built-in applicationId, as
// the Android Gradle plugin does.
func (e *Evaluation) ManifestValues() placeholder.Map {
	return e.placeholders.Merge(placeholder.Map{ApplicationIDPlaceholder: e.config.ApplicationID})
}

// Placeholder returns the value of one manifest placeholder.
func (e *Evaluation) Placeholder(name string) (string, bool) {
	return e.placeholders.Get(name)
}
