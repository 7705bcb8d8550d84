package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type defines the contract for argument validation.
type Type interface {
	// Name returns the catalog spelling of the type (e.g., "string", "int[]").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringType validates string values.
type StringType struct{ name string }

func (t *StringType) Name() string { return t.name }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected %s, got %T", t.name, value)
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// Documents decode numbers as float64
		if v == math.Trunc(v) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	case json.Number:
		if _, err := v.Int64(); err != nil {
			return fmt.Errorf("expected int, got %s", v)
		}
		return nil
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// FloatType validates floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, json.Number:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// AnyType accepts every value. It backs "json" and unrecognized types.
type AnyType struct{ name string }

func (t *AnyType) Name() string { return t.name }

func (t *AnyType) Validate(any) error { return nil }

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return t.elemType.Name() + "[]"
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("expected list, got %T", value)
	}

	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// OptionalType accepts nil in addition to the values of its base type.
type OptionalType struct {
	base Type
}

func (t *OptionalType) Name() string { return t.base.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.base.Validate(value)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{name: "string"} }

// Expr creates a validator for expression arguments ("expr" or "code").
func Expr(name string) Type { return &StringType{name: name} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Any creates a validator accepting every value, reported under name.
func Any(name string) Type { return &AnyType{name: name} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Optional wraps t so nil values pass.
func Optional(t Type) Type {
	return &OptionalType{base: t}
}

// ParseType converts a catalog type string to a Type.
// Unknown names yield Any so they never fail validation.
func ParseType(typeStr string) Type {
	typeStr = strings.TrimSpace(typeStr)
	if s, ok := strings.CutSuffix(typeStr, "?"); ok {
		return Optional(ParseType(s))
	}
	if s, ok := strings.CutSuffix(typeStr, "[]"); ok {
		return Slice(ParseType(s))
	}
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		return Slice(ParseType(typeStr[1 : len(typeStr)-1]))
	}

	switch typeStr {
	case "string":
		return String()
	case "expr", "code":
		return Expr(typeStr)
	case "int":
		return Int()
	case "float":
		return Float()
	case "bool":
		return Bool()
	case "":
		return Any("any")
	default:
		return Any(typeStr)
	}
}
