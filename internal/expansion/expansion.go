// Package expansion replaces ${prefix:key} references in configuration values
// with what the matching secrets resolver returns.
package expansion

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/animalet/envplaceholder/pkg/secrets"
	"github.com/pkg/errors"
)

// ExpandVariables walks the value toExpand points to and expands every
// settable string it reaches through structs, pointers, slices, arrays and
// maps. A nil registry means secrets.Global. The first resolution error stops
// the walk.
func ExpandVariables(toExpand any, registry *secrets.Registry) error {
	if toExpand == nil {
		return nil
	}
	if registry == nil {
		registry = secrets.Global
	}

	v := reflect.ValueOf(toExpand)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		return expandValue(v.Elem(), registry)
	}
	return expandValue(v, registry)
}

var referencePattern = regexp.MustCompile(`\$\{([^{}]+)\}`)

// ExpandString expands the ${...} references in a single string. A string
// without references is returned untouched, so a bare "$" is never rewritten.
func ExpandString(s string, registry *secrets.Registry) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	if registry == nil {
		registry = secrets.Global
	}
	var expandErr error
	expanded := referencePattern.ReplaceAllStringFunc(strings.TrimSpace(s), func(ref string) string {
		if expandErr != nil {
			return ""
		}
		value, err := registry.Resolve(ref[2 : len(ref)-1])
		if err != nil {
			expandErr = errors.Wrap(err, "error resolving property")
			return ""
		}
		return value
	})
	if expandErr != nil {
		return "", expandErr
	}
	return expanded, nil
}

func expandValue(val reflect.Value, registry *secrets.Registry) error {
	// unexported fields
	if !val.CanInterface() {
		return nil
	}
	switch val.Kind() {
	case reflect.String:
		if !val.CanSet() {
			return nil
		}
		expanded, err := ExpandString(val.String(), registry)
		if err != nil {
			return err
		}
		val.SetString(expanded)

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if err := expandValue(val.Field(i), registry); err != nil {
				return err
			}
		}

	case reflect.Ptr, reflect.Interface:
		if val.IsNil() {
			return nil
		}
		elem := val.Elem()
		if val.Kind() == reflect.Interface {
			// interface contents are not addressable
			copied := reflect.New(elem.Type()).Elem()
			copied.Set(elem)
			if err := expandValue(copied, registry); err != nil {
				return err
			}
			if val.CanSet() {
				val.Set(copied)
			}
			return nil
		}
		return expandValue(elem, registry)

	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			if err := expandValue(val.Index(i), registry); err != nil {
				return err
			}
		}

	case reflect.Map:
		for _, key := range val.MapKeys() {
			copied := reflect.New(val.Type().Elem()).Elem()
			copied.Set(val.MapIndex(key))
			if err := expandValue(copied, registry); err != nil {
				return err
			}
			val.SetMapIndex(key, copied)
		}
	}
	return nil
}
