// Package estimator provides the concrete strategies that assign a base
// complexity to each field.
package estimator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
)

// ErrInvalidConfig is returned by constructors given unusable settings.
var ErrInvalidConfig = errors.New("estimator: invalid configuration")

// Strategy names accepted by Build.
const (
	KindSimple    = "simple"
	KindDirective = "directive"
	KindArguments = "arguments"
)

// Settings selects and configures a strategy.
type Settings struct {
	Kind string
	// Complexity is the per-field constant of the simple strategy and the
	// base value multiplied by the arguments strategy.
	Complexity int
	// DefaultComplexity applies to fields without a directive.
	DefaultComplexity int
	// DirectiveName overrides DefaultDirectiveName.
	DirectiveName string
	// Multipliers lists the argument names read by the arguments strategy.
	Multipliers []string
}

// Build returns the strategy named by s.Kind. sdl is only read by the
// directive strategy.
func Build(s Settings, sdl string) (complexity.Estimator, error) {
	var (
		est complexity.Estimator
		err error
	)
	switch strings.ToLower(s.Kind) {
	case "", KindSimple:
		est, err = NewSimple(s.Complexity)
	case KindDirective:
		opts := []DirectiveOption{WithDefaultComplexity(s.DefaultComplexity)}
		if s.DirectiveName != "" {
			opts = append(opts, WithDirectiveName(s.DirectiveName))
		}
		est, err = NewDirective(sdl, opts...)
	case KindArguments:
		est, err = NewArguments(s.Multipliers, s.Complexity)
	default:
		return nil, fmt.Errorf("%w: unknown estimator %q", ErrInvalidConfig, s.Kind)
	}
	if err != nil {
		return nil, err
	}
	return est, nil
}
