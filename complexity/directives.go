package complexity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cast"
	"github.com/vektah/gqlparser/v2/ast"
)

// Built-in execution directives that can exclude a selection.
const (
	skipDirective    = "skip"
	includeDirective = "include"
	conditionArg     = "if"
)

// included reports whether a selection survives its skip/include directives.
// Both directives must allow the selection for it to be counted.
func (w *walker) included(directives ast.DirectiveList) bool {
	for _, d := range directives {
		switch d.Name {
		case skipDirective:
			if w.condition(d) {
				return false
			}
		case includeDirective:
			if !w.condition(d) {
				return false
			}
		}
	}
	return true
}

// condition resolves the directive's `if` argument. A missing argument or an
// unbound variable reads as false.
func (w *walker) condition(d *ast.Directive) bool {
	arg := argument(d.Arguments, conditionArg)
	if arg == nil {
		return false
	}
	v, err := arg.Value.Value(w.variables)
	if err != nil {
		return false
	}
	b, err := cast.ToBoolE(v)
	return err == nil && b
}

// count returns the list multiplier for f, falling back to the configured
// default when the argument is missing or unusable.
func (w *walker) count(f *ast.Field) int {
	if w.config.CountArgName == "" {
		return 1
	}
	arg := argument(f.Arguments, w.config.CountArgName)
	if arg == nil {
		return w.config.CountMissingArgValue
	}
	v, err := arg.Value.Value(w.variables)
	if err != nil {
		return w.config.CountMissingArgValue
	}
	n, ok := toCount(v)
	if !ok {
		return w.config.CountMissingArgValue
	}
	return n
}

// toCount accepts integers, their decimal string spellings and whole floats,
// as variables decoded from JSON arrive as float64 or json.Number.
func toCount(v any) (int, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string, json.Number:
		n, err := strconv.Atoi(fmt.Sprint(x))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
	case float32:
		if float64(x) != math.Trunc(float64(x)) {
			return 0, false
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func argument(args ast.ArgumentList, name string) *ast.Argument {
	for _, a := range args {
		if a.Name == name && a.Value != nil {
			return a
		}
	}
	return nil
}
