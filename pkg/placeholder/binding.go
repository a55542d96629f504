package placeholder

import (
	"regexp"

	"github.com/pkg/errors"
)

const (
	// MapsAPIKeyPlaceholder is the manifest placeholder holding the maps API key.
	MapsAPIKeyPlaceholder = "GOOGLE_MAPS_API_KEY"
	// MapsKeyEnvKey is the env file key the maps API key is read from.
	MapsKeyEnvKey = "ANDROID_MAPS_KEY"
	// DefaultEnvFile is the env file location relative to the project root.
	DefaultEnvFile = "../.env"
)

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// Binding maps a manifest placeholder to an env file key.
type Binding struct {
	// Placeholder is the name substituted in the manifest, as in ${Placeholder}.
	Placeholder string `yaml:"placeholder"`
	// Key is looked up in the env file.
	Key string `yaml:"key"`
	// Default is used when Key cannot be resolved.
	Default string `yaml:"default,omitempty"`
	// Source optionally names a secrets prefix ("env", "vault", ...) queried
	// when the env file lacks Key.
	Source string `yaml:"source,omitempty"`
}

// Validate checks that the binding names a usable placeholder and key.
func (b Binding) Validate() error {
	if !placeholderName.MatchString(b.Placeholder) {
		return errors.Errorf("invalid placeholder name %q", b.Placeholder)
	}
	if b.Key == "" {
		return errors.Errorf("placeholder %q has no key", b.Placeholder)
	}
	return nil
}

// ValidName reports whether name can be used as a manifest placeholder.
func ValidName(name string) bool {
	return placeholderName.MatchString(name)
}

// DefaultBindings returns the single binding of the Android build:
// GOOGLE_MAPS_API_KEY from ANDROID_MAPS_KEY, empty when absent.
func DefaultBindings() []Binding {
	return []Binding{{Placeholder: MapsAPIKeyPlaceholder, Key: MapsKeyEnvKey}}
}

// ValidateBindings validates each binding and rejects duplicated placeholders.
func ValidateBindings(bindings []Binding) error {
	seen := make(map[string]bool, len(bindings))
	for i, b := range bindings {
		if err := b.Validate(); err != nil {
			return errors.Wrapf(err, "placeholder binding %d", i)
		}
		if seen[b.Placeholder] {
			return errors.Errorf("placeholder %q is bound more than once", b.Placeholder)
		}
		seen[b.Placeholder] = true
	}
	return nil
}
