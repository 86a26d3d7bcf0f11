package graph

import (
	"context"
	"errors"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/errcode"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ErrCodeDepthLimit is the extensions.code of operations nested too deeply.
const ErrCodeDepthLimit = "DEPTH_LIMIT_EXCEEDED"

func init() {
	errcode.RegisterErrorType(ErrCodeDepthLimit, errcode.KindProtocol)
}

// DepthLimit rejects operations whose selection sets nest deeper than
// MaxDepth. It runs before execution, next to ComplexityLimit.
type DepthLimit struct {
	MaxDepth int
}

var _ interface {
	graphql.HandlerExtension
	graphql.OperationContextMutator
} = DepthLimit{}

// ExtensionName implements graphql.HandlerExtension.
func (d DepthLimit) ExtensionName() string {
	return "DepthLimit"
}

// Validate implements graphql.HandlerExtension.
func (d DepthLimit) Validate(graphql.ExecutableSchema) error {
	if d.MaxDepth < 1 {
		return errors.New("DepthLimit: MaxDepth must be >= 1")
	}
	return nil
}

// MutateOperationContext implements graphql.OperationContextMutator.
func (d DepthLimit) MutateOperationContext(_ context.Context, oc *graphql.OperationContext) *gqlerror.Error {
	if oc.Operation == nil {
		return nil
	}
	depth := QueryDepth(oc.Operation.SelectionSet, oc.Doc.Fragments)
	if depth <= d.MaxDepth {
		return nil
	}
	err := gqlerror.Errorf("query depth %d exceeds maximum allowed depth of %d", depth, d.MaxDepth)
	errcode.Set(err, ErrCodeDepthLimit)
	return err
}

// QueryDepth computes the deepest nesting level in a selection set.
// Fragment spreads are resolved by name against fragments, so it works on
// documents that were parsed but never validated. Introspection fields do not
// count, and a fragment that spreads itself is not expanded again.
func QueryDepth(set ast.SelectionSet, fragments ast.FragmentDefinitionList) int {
	return queryDepth(set, fragments, map[string]bool{})
}

func queryDepth(set ast.SelectionSet, fragments ast.FragmentDefinitionList, active map[string]bool) int {
	best := 0
	for _, sel := range set {
		var d int
		switch s := sel.(type) {
		case *ast.Field:
			if strings.HasPrefix(s.Name, "__") {
				continue
			}
			d = 1 + queryDepth(s.SelectionSet, fragments, active)
		case *ast.InlineFragment:
			d = queryDepth(s.SelectionSet, fragments, active)
		case *ast.FragmentSpread:
			def := s.Definition
			if def == nil {
				def = fragments.ForName(s.Name)
			}
			if def == nil || active[s.Name] {
				continue
			}
			active[s.Name] = true
			d = queryDepth(def.SelectionSet, fragments, active)
			delete(active, s.Name)
		}
		best = max(best, d)
	}
	return best
}
