// File: lixenwraith/layerconf/freeze.go
package layerconf

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
)

// deepCopy returns a copy of v that shares no maps, slices or pointers with it.
// Unexported struct fields are copied shallowly. Values must be acyclic.
func deepCopy(v any) any {
	if v == nil {
		return nil
	}
	return copyValue(reflect.ValueOf(v)).Interface()
}

func copyValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(copyValue(v.Index(i)))
		}
		return out

	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(copyValue(v.Elem()))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(copyValue(v.Elem()))
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		copyFields(out, v)
		return out

	default:
		return v
	}
}

// copyFields replaces every exported field of dst, including fields promoted
// from embedded structs of unexported type, with a deep copy of src's.
// An embedded pointer to an unexported struct type cannot be replaced and
// stays shared.
func copyFields(dst, src reflect.Value) {
	t := src.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		switch {
		case field.IsExported():
			dst.Field(i).Set(copyValue(src.Field(i)))
		case field.Anonymous && field.Type.Kind() == reflect.Struct:
			copyFields(dst.Field(i), src.Field(i))
		}
	}
}

var (
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	stringerType      = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// valueTree renders a schema value as a path-addressable tree keyed by the
// given struct tag. Values that are neither maps nor structs yield nil.
func valueTree(value any, tag string) map[string]any {
	if value == nil {
		return nil
	}
	tree, ok := toTree(reflect.ValueOf(value), tag).(map[string]any)
	if !ok {
		return nil
	}
	return tree
}

func toTree(v reflect.Value, tag string) any {
	switch v.Kind() {
	case reflect.Invalid:
		return nil

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Pointer && isLeafStruct(v.Type()) {
			return copyValue(v).Interface()
		}
		return toTree(v.Elem(), tag)

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return copyValue(v).Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = toTree(iter.Value(), tag)
		}
		return out

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any(nil)
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// []byte and net.IP stay as leaves
			return copyValue(v).Interface()
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = toTree(v.Index(i), tag)
		}
		return out

	case reflect.Struct:
		if isLeafStruct(v.Type()) {
			return copyValue(v).Interface()
		}
		out := make(map[string]any)
		structToTree(v, tag, out)
		return out

	default:
		return v.Interface()
	}
}

func structToTree(v reflect.Value, tag string, out map[string]any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, opts, _ := strings.Cut(field.Tag.Get(tag), ",")
		if name == "-" {
			continue
		}

		fv := v.Field(i)
		// Embedded and squashed structs are flattened, as decodeInto reads them
		squash := field.Anonymous || (field.IsExported() && strings.Contains(opts, "squash"))
		if squash && embeddedStruct(field.Type) {
			if fv.Kind() == reflect.Pointer && fv.IsNil() {
				continue
			}
			structToTree(reflect.Indirect(fv), tag, out)
			continue
		}

		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		out[name] = toTree(fv, tag)
	}
}

func embeddedStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && !isLeafStruct(t)
}

// isLeafStruct reports struct types that render as a single value (time.Time, url.URL).
func isLeafStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	ptr := reflect.PointerTo(t)
	return t.Implements(textMarshalerType) || ptr.Implements(textMarshalerType) ||
		t.Implements(stringerType) || ptr.Implements(stringerType)
}
