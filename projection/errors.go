package projection

import (
	"fmt"
	"reflect"
	"strings"

	"go.viam.com/ulog/model"
)

// MissingFieldsError is returned when a format lacks fields a projection requires. Every absent
// field is listed at once.
type MissingFieldsError struct {
	Schema  string
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("format %q has no field(s) %s", e.Schema, strings.Join(e.Missing, ", "))
}

// TypeMismatchError is returned when a Go field cannot hold the values of a format field.
type TypeMismatchError struct {
	Schema string
	Field  string
	Type   model.TypeExpr
	GoType reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("field %q of %q is %s, cannot project into %s", e.Field, e.Schema, e.Type, e.GoType)
}
