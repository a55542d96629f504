// Package envfile reads environment definition files used to inject secrets and
// configuration into a build without committing them to source control.
//
// The accepted format is the one understood by java.util.Properties, which is
// what Gradle build scripts use to read a ".env" file. Parsing is delegated to
// github.com/magiconair/properties with ${...} expansion disabled. On top of
// that, values lose their trailing whitespace and a leading byte order mark is
// ignored.
package envfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var utf8BOM = []byte("\ufeff")

// Entry is a single KEY=VALUE pair read from an env file.
type Entry struct {
	Key   string
	Value string
}

// Properties holds the entries of an env file. Keys are unique: when a key
// appears more than once the last occurrence wins, but the key keeps the
// position of its first appearance.
type Properties struct {
	props *properties.Properties
}

// New returns an empty Properties.
func New() *Properties {
	p := properties.NewProperties()
	p.DisableExpansion = true
	return &Properties{props: p}
}

// Set stores value under key, replacing any previous value. Empty keys are ignored.
func (p *Properties) Set(key, value string) {
	// expansion is disabled, so Set cannot fail
	_, _, _ = p.props.Set(key, value)
}

// Get returns the value stored under key and whether it was present.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	return p.props.Get(key)
}

// GetOrDefault returns the value stored under key, or def when the key is absent.
// It never fails.
func (p *Properties) GetOrDefault(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Len returns the number of distinct keys.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return p.props.Len()
}

// Keys returns the keys in order of first appearance.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return p.props.Keys()
}

// Entries returns the effective entries in order of first appearance.
func (p *Properties) Entries() []Entry {
	keys := p.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, _ := p.Get(k)
		entries = append(entries, Entry{Key: k, Value: v})
	}
	return entries
}

// Map returns a copy of the key/value pairs.
func (p *Properties) Map() map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p.props.Map()
}

// Load reads the env file at path. A missing, unreadable, non-regular or
// malformed file yields empty Properties: resolution must never break a build
// whose env file has not been provisioned.
func Load(path string) *Properties {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("Env file not found - using empty properties")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("Unable to access env file - using empty properties")
		}
		return New()
	}
	if !info.Mode().IsRegular() {
		log.Warn().Str("path", path).Msg("Env file is not a regular file - using empty properties")
		return New()
	}

	// #nosec G304 -- the env file location is chosen by the build owner
	f, err := os.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Unable to open env file - using empty properties")
		return New()
	}
	defer func() { _ = f.Close() }()

	props, err := Parse(f)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Env file could not be parsed - using empty properties")
		return New()
	}
	log.Debug().Str("path", path).Int("keys", props.Len()).Msg("Loaded env file")
	return props
}

// LoadFrom resolves rel against baseDir and loads the resulting file.
// rel may climb out of baseDir, as in "../.env".
func LoadFrom(baseDir, rel string) *Properties {
	return Load(Resolve(baseDir, rel))
}

// Resolve returns the cleaned location of rel relative to baseDir.
// An absolute rel is returned as is.
func Resolve(baseDir, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(baseDir, rel)
}

// Parse reads properties from r. The returned Properties is never nil; on
// error it is empty.
func Parse(r io.Reader) (*Properties, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return New(), errors.Wrap(err, "error reading env file")
	}
	return ParseBytes(data)
}

// ParseBytes is Parse over an in-memory buffer.
func ParseBytes(data []byte) (*Properties, error) {
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	parsed, err := loader.LoadBytes(bytes.TrimPrefix(data, utf8BOM))
	if err != nil {
		return New(), errors.Wrap(err, "error parsing env file")
	}

	props := New()
	for _, key := range parsed.Keys() {
		if key == "" {
			log.Debug().Msg("Skipping env file entry without key")
			continue
		}
		value, _ := parsed.Get(key)
		props.Set(key, strings.TrimRight(value, " \t\f"))
	}
	return props, nil
}
