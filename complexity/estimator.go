package complexity

import (
	"errors"
	"reflect"

	"github.com/vektah/gqlparser/v2/ast"
)

// ErrInvalidEstimator is returned when a walk is requested without an estimator.
var ErrInvalidEstimator = errors.New("complexity: invalid estimator")

// CheckEstimator returns ErrInvalidEstimator when est is nil, including a
// nil pointer or func stored in the interface.
func CheckEstimator(est Estimator) error {
	if est == nil {
		return ErrInvalidEstimator
	}
	switch v := reflect.ValueOf(est); v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			return ErrInvalidEstimator
		}
	}
	return nil
}

// FieldInfo is the schema position of a field being walked. Any member may be
// nil when the schema does not describe the field.
type FieldInfo struct {
	// ParentType is the object, interface or union the field is selected on.
	ParentType *ast.Definition
	// Definition is the field definition on ParentType.
	Definition *ast.FieldDefinition
	// Type is the declared output type, including list and non-null wrapping.
	Type *ast.Type
	// NamedType is the unwrapped output type.
	NamedType *ast.Definition
}

// Estimator assigns a base complexity to a single field. Implementations must
// be safe for concurrent use once constructed.
type Estimator interface {
	FieldComplexity(field *ast.Field, info FieldInfo, path ast.Path) int
}

// Describer is implemented by estimators that can report their settings in
// explanations.
type Describer interface {
	Name() string
	Details() map[string]any
}
