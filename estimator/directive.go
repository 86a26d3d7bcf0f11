package estimator

import (
	"fmt"
	"maps"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/vektah/gqlparser/v2/ast"
)

// Defaults for the directive strategy.
const (
	DefaultDirectiveName     = "complexity"
	DefaultMissingComplexity = 1
)

// Directive reads per-field costs declared in the schema with
//
//	directive @complexity(value: Int!) on FIELD_DEFINITION
//
// and charges DefaultMissingComplexity (or the configured default) for
// fields that carry no such directive.
type Directive struct {
	directiveName string
	missing       int
	costs         FieldCosts
}

var _ interface {
	complexity.Estimator
	complexity.Describer
} = (*Directive)(nil)

// DirectiveOption customizes NewDirective.
type DirectiveOption func(*Directive)

// WithDirectiveName reads costs from a directive other than @complexity.
func WithDirectiveName(name string) DirectiveOption {
	return func(d *Directive) { d.directiveName = name }
}

// WithDefaultComplexity sets the cost of fields without the directive.
func WithDefaultComplexity(c int) DirectiveOption {
	return func(d *Directive) { d.missing = c }
}

// NewDirective extracts the declared costs from sdl once.
func NewDirective(sdl string, opts ...DirectiveOption) (*Directive, error) {
	d := &Directive{
		directiveName: DefaultDirectiveName,
		missing:       DefaultMissingComplexity,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.missing < 0 {
		return nil, fmt.Errorf("%w: default complexity must be >= 0, got %d", ErrInvalidConfig, d.missing)
	}

	costs, err := ExtractFieldCosts(sdl, d.directiveName)
	if err != nil {
		return nil, err
	}
	d.costs = costs
	return d, nil
}

// FieldComplexity implements complexity.Estimator.
func (d *Directive) FieldComplexity(field *ast.Field, info complexity.FieldInfo, _ ast.Path) int {
	typeName := ""
	if info.ParentType != nil {
		typeName = info.ParentType.Name
	}
	if c, ok := d.costs.Lookup(typeName, field.Name); ok {
		return c
	}
	return d.missing
}

// Name implements complexity.Describer.
func (d *Directive) Name() string {
	return "DirectivesEstimator"
}

// Details implements complexity.Describer.
func (d *Directive) Details() map[string]any {
	return map[string]any{
		"directive_name":     d.directiveName,
		"missing_complexity": d.missing,
		"complexity_map":     maps.Clone(d.costs.ByField),
	}
}
