// Package manifest substitutes ${NAME} placeholders in manifest templates.
package manifest

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/animalet/envplaceholder/pkg/placeholder"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

var reference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.]*)\}`)

// UnresolvedError lists the placeholders a template references but the map
// does not define.
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return "unresolved manifest placeholders: " + strings.Join(e.Names, ", ")
}

// Placeholders returns the names referenced by template, sorted and without
// duplicates.
func Placeholders(template []byte) []string {
	var names []string
	for _, match := range reference.FindAllSubmatch(template, -1) {
		names = append(names, string(match[1]))
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// Apply replaces every ${NAME} in template with the XML-escaped value of NAME.
// Text that does not form a valid reference is copied as is.
func Apply(template []byte, m placeholder.Map) ([]byte, error) {
	var missing []string
	out := reference.ReplaceAllFunc(template, func(ref []byte) []byte {
		name := string(ref[2 : len(ref)-1])
		value, ok := m.Get(name)
		if !ok {
			missing = append(missing, name)
			return ref
		}
		var buf bytes.Buffer
		_ = xml.EscapeText(&buf, []byte(value))
		return buf.Bytes()
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, &UnresolvedError{Names: slices.Compact(missing)}
	}
	return out, nil
}

// ApplyFile reads the template at in, applies m and writes the result to out,
// creating its directory when needed.
func ApplyFile(in, out string, m placeholder.Map) error {
	template, err := os.ReadFile(in)
	if err != nil {
		return errors.Wrapf(err, "error reading manifest template %q", in)
	}
	rendered, err := Apply(template, m)
	if err != nil {
		return errors.Wrapf(err, "error rendering %q", in)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return errors.Wrapf(err, "error creating output directory for %q", out)
	}
	if err := os.WriteFile(out, rendered, 0o644); err != nil {
		return errors.Wrapf(err, "error writing manifest %q", out)
	}
	log.Info().Str("template", in).Str("output", out).Int("placeholders", len(Placeholders(template))).Msg("Manifest rendered")
	return nil
}
