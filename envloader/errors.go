package envloader

import (
	"fmt"
	"reflect"
)

// InvalidConfigError is returned when Load receives a 'config' argument
// that is not a pointer to a struct.
type InvalidConfigError struct {
	// Value is the reflected type that was supplied (e.g. reflect.String, reflect.Ptr).
	Value reflect.Type
}

// Error returns a formatted message describing the invalid argument.
//
// Implemented to satisfy the Go `error` interface.
//
// Example output: "envloader: config must be a pointer to struct, got string"
func (e *InvalidConfigError) Error() string {
	if e.Value.Kind() != reflect.Ptr {
		return fmt.Sprintf("envloader: config must be a pointer to struct, got %s", e.Value.Kind())
	}
	return fmt.Sprintf("envloader: config must be a pointer to struct, got pointer to %s", e.Value.Elem().Kind())
}

// FieldError is returned when setting the value of a specific struct
// field fails.
//
// It typically wraps a type conversion error (`strconv`) or an
// UnsupportedTypeError.
type FieldError struct {
	// FieldName is the struct field name (e.g. "Port").
	FieldName string
	// EnvVar is the environment variable name (e.g. "APP_PORT").
	EnvVar string
	// Value is the raw environment value that caused the error (e.g. "abc").
	Value string
	// Err is the wrapped original error (e.g. *strconv.NumError).
	Err error
}

// Error returns a detailed field error message.
func (e *FieldError) Error() string {
	return fmt.Sprintf("envloader: error setting field %s from env %s=%s: %v",
		e.FieldName, e.EnvVar, e.Value, e.Err)
}

// Unwrap returns the original error behind the FieldError, implementing
// the `Unwrap` interface for Go 1.13+.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned when the struct field type
// (e.g. map, slice, interface) is not supported for conversion.
type UnsupportedTypeError struct {
	// Type is the reflected type of the unsupported field.
	Type reflect.Type
}

// Error returns a message naming the unsupported type.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("envloader: unsupported type %s", e.Type)
}
