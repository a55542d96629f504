// Package snapshot takes deep copies of build declarations so that an
// evaluation result cannot be changed through the values it was built from.
package snapshot

import (
	"github.com/pkg/errors"
	"github.com/tiendc/go-deepcopy"
)

// Copy returns a deep copy of src. Slices, maps and nested pointers are
// copied recursively. A nil src yields (nil, nil).
func Copy[T any](src *T) (*T, error) {
	if src == nil {
		return nil, nil
	}

	var dst T
	if err := deepcopy.Copy(&dst, *src); err != nil {
		return nil, errors.Wrapf(err, "failed to snapshot %T", src)
	}
	return &dst, nil
}

// MustCopy is Copy for values that are always copyable, such as the
// evaluated build config. It panics on failure.
func MustCopy[T any](src *T) *T {
	result, err := Copy(src)
	if err != nil {
		panic("failed to create build snapshot: " + err.Error())
	}
	return result
}
