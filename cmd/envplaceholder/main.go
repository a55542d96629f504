package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/animalet/envplaceholder/pkg/android"
	"github.com/animalet/envplaceholder/pkg/config"
	"github.com/animalet/envplaceholder/pkg/manifest"
	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/animalet/envplaceholder/pkg/secrets"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Version information set during build
var (
	version = "dev"
)

type options struct {
	configFile   string
	projectRoot  string
	envFile      string
	manifestFile string
	outFile      string
	format       placeholder.Format
	debug        bool
	showVersion  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("envplaceholder", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var format string
	fs.StringVar(&opts.configFile, "config", "", "Path to build configuration file (yaml, toml or hcl)")
	fs.StringVar(&opts.projectRoot, "project-root", ".", "Android project root")
	fs.StringVar(&opts.envFile, "env-file", "", "Env file relative to the project root (default "+placeholder.DefaultEnvFile+")")
	fs.StringVar(&opts.manifestFile, "manifest", "", "Manifest template to substitute placeholders into")
	fs.StringVar(&opts.outFile, "out", "", "Output path for the substituted manifest (default stdout)")
	fs.StringVar(&format, "format", string(placeholder.FormatProperties), "Placeholder output format: "+formatNames())
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug mode")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	f, err := placeholder.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	opts.format = f
	if opts.outFile != "" && opts.manifestFile == "" {
		return nil, errors.New("-out requires -manifest")
	}
	return opts, nil
}

func formatNames() string {
	names := make([]string, 0, len(placeholder.Formats()))
	for _, f := range placeholder.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, "|")
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.showVersion {
		_, _ = fmt.Fprintf(stdout, "%s %s\n", "envplaceholder", version)
		return 0
	}

	if opts.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        stderr,
		NoColor:    false,
		TimeFormat: "2006-01-02 15:04:05",
	})

	if err := generate(opts, stdout); err != nil {
		log.Error().Err(err).Msg("Placeholder generation failed")
		return 1
	}
	return 0
}

func generate(opts *options, stdout io.Writer) error {
	registry := secrets.NewRegistry()

	var cfg *config.Config
	if opts.configFile != "" {
		var err error
		if cfg, err = loadConfig(opts.configFile, registry); err != nil {
			return err
		}
	}

	// dotenv must point at the configured file before any section that
	// references it is expanded
	envFile, err := configuredEnvFile(cfg, opts.envFile)
	if err != nil {
		return err
	}
	props := registerDotEnv(registry, opts.projectRoot, envFile)
	if cfg != nil {
		if err := registerSecretProviders(cfg, registry); err != nil {
			return err
		}
	}

	build, err := decodeBuild(cfg, envFile)
	if err != nil {
		return err
	}

	eval, err := android.Evaluate(opts.projectRoot, build,
		placeholder.WithRegistry(registry),
		placeholder.WithProperties(props),
	)
	if err != nil {
		return err
	}
	log.Info().
		Str("env_file", eval.EnvFile()).
		Strs("placeholders", eval.Placeholders().Names()).
		Msg("Manifest placeholders resolved")

	if opts.manifestFile == "" {
		return placeholder.Encode(stdout, eval.Placeholders(), opts.format)
	}
	if opts.outFile != "" {
		return manifest.ApplyFile(opts.manifestFile, opts.outFile, eval.ManifestValues())
	}
	// #nosec G304 -- the template location is chosen by the build owner
	template, err := os.ReadFile(opts.manifestFile)
	if err != nil {
		return errors.Wrapf(err, "error reading manifest template %q", opts.manifestFile)
	}
	rendered, err := manifest.Apply(template, eval.ManifestValues())
	if err != nil {
		return err
	}
	_, err = stdout.Write(rendered)
	return errors.Wrap(err, "error writing manifest")
}

// envFileSection is the part of the android section needed to locate the env
// file before secret providers exist.
type envFileSection struct {
	EnvFile string `yaml:"env_file"`
}

// configuredEnvFile returns the env file named on the command line, or else the
// one named by the android section. Empty means the default.
func configuredEnvFile(cfg *config.Config, flagValue string) (string, error) {
	if flagValue != "" || cfg == nil {
		return flagValue, nil
	}
	section, err := config.Decode[envFileSection](cfg, "android")
	if err != nil {
		return "", errors.Wrap(err, "failed to locate env file")
	}
	if section == nil {
		return "", nil
	}
	return section.EnvFile, nil
}

// decodeBuild reads the android section of cfg, if any. A non-empty envFile
// overrides the configured env file.
func decodeBuild(cfg *config.Config, envFile string) (android.BuildConfig, error) {
	var build android.BuildConfig
	if cfg != nil {
		decoded, err := config.Decode[android.BuildConfig](cfg, "android")
		if err != nil {
			return build, errors.Wrap(err, "failed to load android configuration")
		}
		if decoded != nil {
			build = *decoded
		}
	}
	if envFile != "" {
		build.EnvFile = envFile
	}
	return build, nil
}
