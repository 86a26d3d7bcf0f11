package estimator

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DirectiveValueArg is the directive argument holding the declared cost.
const DirectiveValueArg = "value"

// FieldCosts holds the costs declared in a schema, keyed both by bare field
// name and by "Type.field".
type FieldCosts struct {
	// ByField is keyed by field name alone. When two types declare the same
	// field name the one declared last wins.
	ByField map[string]int
	// ByTypeField is keyed by "Type.field".
	ByTypeField map[string]int
}

// Lookup prefers the cost declared on typeName and falls back to any cost
// declared for fieldName on another type.
func (c FieldCosts) Lookup(typeName, fieldName string) (int, bool) {
	if typeName != "" {
		if v, ok := c.ByTypeField[typeName+"."+fieldName]; ok {
			return v, true
		}
	}
	v, ok := c.ByField[fieldName]
	return v, ok
}

// ExtractFieldCosts parses sdl and collects every @directiveName(value: N)
// placed on an object or interface field, extensions included.
func ExtractFieldCosts(sdl, directiveName string) (FieldCosts, error) {
	costs := FieldCosts{ByField: map[string]int{}, ByTypeField: map[string]int{}}

	doc, err := parser.ParseSchema(&ast.Source{Name: "schema", Input: sdl})
	if err != nil {
		return costs, fmt.Errorf("%w: parse schema: %v", ErrInvalidConfig, err)
	}

	defs := make(ast.DefinitionList, 0, len(doc.Definitions)+len(doc.Extensions))
	defs = append(defs, doc.Definitions...)
	defs = append(defs, doc.Extensions...)

	for _, def := range defs {
		if def.Kind != ast.Object && def.Kind != ast.Interface {
			continue
		}
		for _, field := range def.Fields {
			dir := field.Directives.ForName(directiveName)
			if dir == nil {
				continue
			}
			v, err := directiveCost(dir)
			if err != nil {
				return costs, fmt.Errorf("%w: %s.%s: %v", ErrInvalidConfig, def.Name, field.Name, err)
			}
			costs.ByField[field.Name] = v
			costs.ByTypeField[def.Name+"."+field.Name] = v
		}
	}
	return costs, nil
}

func directiveCost(dir *ast.Directive) (int, error) {
	var arg *ast.Argument
	for _, a := range dir.Arguments {
		if a.Name == DirectiveValueArg {
			arg = a
			break
		}
	}
	if arg == nil || arg.Value == nil {
		return 0, fmt.Errorf("@%s is missing %q", dir.Name, DirectiveValueArg)
	}
	if arg.Value.Kind != ast.IntValue {
		return 0, fmt.Errorf("@%s(%s:) must be an Int, got %s", dir.Name, DirectiveValueArg, arg.Value.Raw)
	}
	v, err := strconv.Atoi(arg.Value.Raw)
	if err != nil {
		return 0, fmt.Errorf("@%s(%s:): %w", dir.Name, DirectiveValueArg, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("@%s(%s:) must be >= 0, got %d", dir.Name, DirectiveValueArg, v)
	}
	return v, nil
}
