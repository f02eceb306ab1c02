// Package extract provides safe accessors over loosely-structured decoded
// JSON objects. Accessors never panic and never return an error: a missing
// key, a JSON null or a value of an unexpected shape is reported as absent.
package extract

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Has reports whether key is present in obj, even when its value is null.
func Has(obj map[string]interface{}, key string) bool {
	if obj == nil {
		return false
	}
	_, ok := obj[key]
	return ok
}

// Value returns the value stored under key when it is present and not null.
func Value(obj map[string]interface{}, key string) (interface{}, bool) {
	if obj == nil {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Object returns the nested object stored under key.
func Object(obj map[string]interface{}, key string) (map[string]interface{}, bool) {
	v, ok := Value(obj, key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]interface{})
	return m, ok
}

// List returns the array stored under key.
func List(obj map[string]interface{}, key string) ([]interface{}, bool) {
	v, ok := Value(obj, key)
	if !ok {
		return nil, false
	}
	l, ok := v.([]interface{})
	return l, ok
}

// String returns the scalar under key rendered as a string. Numbers are
// rendered in their shortest form. Objects and arrays are absent.
func String(obj map[string]interface{}, key string) (string, bool) {
	v, ok := Value(obj, key)
	if !ok {
		return "", false
	}
	return scalarString(v)
}

// StringN returns the first key that holds a string-able scalar.
func StringN(obj map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := String(obj, key); ok {
			return s, true
		}
	}
	return "", false
}

// Float returns the number under key. Numeric strings are parsed; booleans,
// empty strings, NaN and infinities are absent.
func Float(obj map[string]interface{}, key string) *float64 {
	v, ok := Value(obj, key)
	if !ok {
		return nil
	}
	return toFloat(v)
}

// FloatN returns the first key that holds a usable number.
func FloatN(obj map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		if f := Float(obj, key); f != nil {
			return f
		}
	}
	return nil
}

// ParseFloat parses a free-standing numeric string.
func ParseFloat(s string) *float64 {
	return toFloat(s)
}

// Truthy applies the venue's loose truthiness to the value under key:
// absent, null, false, zero and the empty string are false, everything else
// is true.
func Truthy(obj map[string]interface{}, key string) bool {
	v, ok := Value(obj, key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0 && !math.IsNaN(t)
	case float32:
		return t != 0
	case int, int32, int64, uint, uint32, uint64:
		return cast.ToFloat64(t) != 0
	default:
		return true
	}
}

func scalarString(v interface{}) (string, bool) {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}

func toFloat(v interface{}) *float64 {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case bool, map[string]interface{}, []interface{}:
		return nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return nil
		}
		f, err = cast.ToFloat64E(t)
	default:
		f, err = cast.ToFloat64E(t)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
