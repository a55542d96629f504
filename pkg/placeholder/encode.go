package placeholder

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/animalet/envplaceholder/pkg/envfile"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding for a placeholder map.
type Format string

const (
	FormatProperties Format = "properties"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatTOML       Format = "toml"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatProperties, FormatJSON, FormatYAML, FormatTOML}
}

// ParseFormat parses a format name, case-insensitively. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatProperties, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unsupported format %q", s)
	}
}

// Encode writes m to w in the given format. Keys are always sorted.
func Encode(w io.Writer, m Map, format Format) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatProperties:
		props := envfile.New()
		for _, name := range m.Names() {
			props.Set(name, m[name])
		}
		return props.Store(w)
	case FormatJSON:
		data, err = json.MarshalIndent(map[string]string(m), "", "  ")
		data = append(data, '\n')
	case FormatYAML:
		data, err = yaml.Marshal(map[string]string(m))
	case FormatTOML:
		data, err = toml.Marshal(map[string]string(m))
	default:
		return errors.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "error encoding placeholders as %s", format)
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "error writing placeholders")
}
