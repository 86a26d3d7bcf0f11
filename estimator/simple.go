package estimator

import (
	"fmt"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/vektah/gqlparser/v2/ast"
)

// Simple assigns the same complexity to every field.
type Simple struct {
	complexity int
}

var _ interface {
	complexity.Estimator
	complexity.Describer
} = (*Simple)(nil)

// NewSimple returns an estimator that charges c per field.
func NewSimple(c int) (*Simple, error) {
	if c < 0 {
		return nil, fmt.Errorf("%w: complexity must be >= 0, got %d", ErrInvalidConfig, c)
	}
	return &Simple{complexity: c}, nil
}

// FieldComplexity implements complexity.Estimator.
func (s *Simple) FieldComplexity(*ast.Field, complexity.FieldInfo, ast.Path) int {
	return s.complexity
}

// Name implements complexity.Describer.
func (s *Simple) Name() string {
	return "SimpleEstimator"
}

// Details implements complexity.Describer.
func (s *Simple) Details() map[string]any {
	return map[string]any{"complexity_constant": s.complexity}
}
