// File: lixenwraith/layerconf/type.go
package layerconf

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// String returns the value at path as a string. Numbers, bools, byte slices
// and fmt.Stringer values are formatted; nil reads as "".
func (v *View[T]) String(path string) (string, error) {
	val, err := v.scalar(path)
	if err != nil {
		return "", err
	}
	s, err := asString(val)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Int64 returns the value at path as an int64. Floats are truncated, strings
// parsed (base prefixes allowed) and bools read as 0 or 1.
func (v *View[T]) Int64(path string) (int64, error) {
	val, err := v.scalar(path)
	if err != nil {
		return 0, err
	}
	n, err := asInt64(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

// Bool returns the value at path as a bool; non-zero numbers are true.
func (v *View[T]) Bool(path string) (bool, error) {
	val, err := v.scalar(path)
	if err != nil {
		return false, err
	}
	b, err := asBool(val)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func (v *View[T]) Float64(path string) (float64, error) {
	val, err := v.scalar(path)
	if err != nil {
		return 0, err
	}
	f, err := asFloat64(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Duration returns the value at path as a time.Duration. Strings use
// time.ParseDuration, integers are nanoseconds.
func (v *View[T]) Duration(path string) (time.Duration, error) {
	val, err := v.scalar(path)
	if err != nil {
		return 0, err
	}

	switch d := val.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		return parsed, nil
	}

	n, err := asInt64(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return time.Duration(n), nil
}

// scalar reads the stored value at path without copying; accessors only
// convert it and never hand it out.
func (v *View[T]) scalar(path string) (any, error) {
	val, loaded, found := v.svc.repo.peek(v.key, path)
	if !loaded {
		return nil, &NotFoundError{Key: v.key}
	}
	if !found {
		return nil, fmt.Errorf("path %q not found in %q", path, v.key)
	}
	return val, nil
}

func asString(val any) (string, error) {
	if val == nil {
		return "", nil
	}
	switch s := val.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	case []byte:
		return string(s), nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}
	return "", fmt.Errorf("cannot convert %T to string", val)
}

func asInt64(val any) (int64, error) {
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= 1<<63-1 {
			return int64(u), nil
		}
		return 0, fmt.Errorf("unsigned value %d overflows int64", rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int64(rv.Float()), nil
	case reflect.String:
		if i, err := strconv.ParseInt(rv.String(), 0, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int64", rv.String())
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", val)
}

func asBool(val any) (bool, error) {
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		b, err := strconv.ParseBool(rv.String())
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool", rv.String())
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		f, err := asFloat64(val)
		return f != 0, err
	}
	return false, fmt.Errorf("cannot convert %T to bool", val)
}

func asFloat64(val any) (float64, error) {
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		f, err := strconv.ParseFloat(rv.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float64", rv.String())
		}
		return f, nil
	case reflect.Bool:
		if rv.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float64", val)
}
