package memdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrInvalidKey reports a path segment the tree cannot store.
	ErrInvalidKey = errors.New("memdb: invalid key")
	// ErrInvalidValue reports a value the tree cannot store.
	ErrInvalidValue = errors.New("memdb: invalid value")
)

const forbiddenKeyChars = ".#$[]/"

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidKey)
	}
	if strings.ContainsAny(key, forbiddenKeyChars) {
		return fmt.Errorf("%w: %q contains one of %q", ErrInvalidKey, key, forbiddenKeyChars)
	}
	return nil
}

// splitPath turns "a/b/c" into its segments. Empty segments are ignored.
func splitPath(path string) ([]string, error) {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		if err := validateKey(segment); err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, nil
}

// normalize converts a Go value into the tree's stored form: nil, bool,
// float64, string or map[string]any. Slices become maps keyed by index, and
// empty containers collapse to nil.
func normalize(value any) (any, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return typed, nil
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, typed)
		}
		return typed, nil
	case json.Number:
		number, err := typed.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return normalize(number)
	case map[string]any:
		return normalizeMap(len(typed), func(yield func(string, any) error) error {
			for key, child := range typed {
				if err := yield(key, child); err != nil {
					return err
				}
			}
			return nil
		})
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return normalize(rv.Float())
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key type %s", ErrInvalidValue, rv.Type().Key())
		}
		return normalizeMap(rv.Len(), func(yield func(string, any) error) error {
			iter := rv.MapRange()
			for iter.Next() {
				if err := yield(iter.Key().String(), iter.Value().Interface()); err != nil {
					return err
				}
			}
			return nil
		})
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		return normalizeMap(rv.Len(), func(yield func(string, any) error) error {
			for i := 0; i < rv.Len(); i++ {
				if err := yield(strconv.Itoa(i), rv.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		})
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
	}

	// Structs and other values go through their JSON form.
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return normalize(decoded)
}

func normalizeMap(size int, each func(yield func(string, any) error) error) (any, error) {
	out := make(map[string]any, size)
	err := each(func(key string, child any) error {
		if err := validateKey(key); err != nil {
			return err
		}
		normalized, err := normalize(child)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if normalized != nil {
			out[key] = normalized
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
