package estimator

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/vektah/gqlparser/v2/ast"
)

// Arguments scales a base complexity by the value of a pagination-style
// argument, e.g. `limit: 10` or `ids: ["a", "b"]`.
type Arguments struct {
	multipliers []string
	complexity  int
}

var _ interface {
	complexity.Estimator
	complexity.Describer
} = (*Arguments)(nil)

// NewArguments returns an estimator charging c times the value of the first
// argument named in multipliers.
func NewArguments(multipliers []string, c int) (*Arguments, error) {
	if c < 0 {
		return nil, fmt.Errorf("%w: complexity must be >= 0, got %d", ErrInvalidConfig, c)
	}
	return &Arguments{multipliers: slices.Clone(multipliers), complexity: c}, nil
}

// FieldComplexity implements complexity.Estimator.
func (a *Arguments) FieldComplexity(field *ast.Field, _ complexity.FieldInfo, _ ast.Path) int {
	return complexity.SaturatingMul(a.complexity, a.multiplier(field))
}

// multiplier scans the field's arguments in query order. Int literals count
// as their value and list literals as their length; anything else, variables
// included, is passed over. Literals too large for an int count as the
// maximum int.
func (a *Arguments) multiplier(field *ast.Field) int {
	for _, arg := range field.Arguments {
		if arg.Value == nil || !slices.Contains(a.multipliers, arg.Name) {
			continue
		}
		switch arg.Value.Kind {
		case ast.IntValue:
			n, err := strconv.Atoi(arg.Value.Raw)
			if err == nil && n >= 0 {
				return n
			}
			if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(arg.Value.Raw, "-") {
				return math.MaxInt
			}
		case ast.ListValue:
			return len(arg.Value.Children)
		}
	}
	return 1
}

// Name implements complexity.Describer.
func (a *Arguments) Name() string {
	return "ArgumentsEstimator"
}

// Details implements complexity.Describer.
func (a *Arguments) Details() map[string]any {
	return map[string]any{
		"default_complexity": a.complexity,
		"multipliers":        slices.Clone(a.multipliers),
	}
}
