package envfile

import (
	"io"

	"github.com/magiconair/properties"
	"github.com/pkg/errors"
)

// Store writes the properties to w as UTF-8, one "key = value" line per key in
// order of first appearance.
func (p *Properties) Store(w io.Writer) error {
	if p == nil {
		return nil
	}
	_, err := p.props.Write(w, properties.UTF8)
	return errors.Wrap(err, "error writing properties")
}
