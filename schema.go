// File: lixenwraith/layerconf/schema.go
package layerconf

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultTagName is the struct tag used to map tree keys to struct fields.
const DefaultTagName = "yaml"

// Schema validates and normalizes the merged tree of one module.
// Parse returns the value to publish, or an error describing why data is invalid.
// Errors of type *ValidationError are reported field by field.
type Schema interface {
	Parse(data map[string]any) (any, error)
}

// SchemaFunc adapts a function to the Schema interface.
type SchemaFunc func(data map[string]any) (any, error)

func (f SchemaFunc) Parse(data map[string]any) (any, error) {
	return f(data)
}

// tagged is implemented by schemas that expose the struct tag of their values.
type tagged interface {
	Tag() string
}

// StructSchema decodes the merged tree into T on top of Defaults, then checks
// the `validate` struct tags.
//
//	type Retry struct {
//	    Count   int           `yaml:"retryCount" validate:"min=0"`
//	    Timeout time.Duration `yaml:"timeout" validate:"required"`
//	}
//	schema := layerconf.NewStructSchema(Retry{Count: 3})
type StructSchema[T any] struct {
	// Defaults fill every field the merged tree leaves unset
	Defaults T
	// TagName selects the struct tag used for key names, DefaultTagName if empty
	TagName string
	// Strict rejects keys that do not map to any field
	Strict bool
	// Validator replaces the lazily built default validator
	Validator *validator.Validate

	once sync.Once
	v    *validator.Validate
}

// NewStructSchema creates a StructSchema with the given defaults.
func NewStructSchema[T any](defaults T) *StructSchema[T] {
	return &StructSchema[T]{Defaults: defaults}
}

// Tag returns the struct tag used for key names.
func (s *StructSchema[T]) Tag() string {
	if s.TagName == "" {
		return DefaultTagName
	}
	return s.TagName
}

func (s *StructSchema[T]) Parse(data map[string]any) (any, error) {
	out, _ := deepCopy(s.Defaults).(T)
	if err := decodeInto(data, &out, s.Tag(), s.Strict); err != nil {
		return nil, err
	}

	if isStructLike(reflect.TypeOf(out)) {
		if err := s.validator().Struct(out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *StructSchema[T]) validator() *validator.Validate {
	if s.Validator != nil {
		return s.Validator
	}
	s.once.Do(func() {
		tag := s.Tag()
		s.v = validator.New(validator.WithRequiredStructEnabled())
		s.v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			switch name {
			case "-":
				return ""
			case "":
				return field.Name
			}
			return name
		})
	})
	return s.v
}

func isStructLike(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}
