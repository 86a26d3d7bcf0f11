// Package graph provides gqlgen handler extensions that score and limit
// operations before they execute.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/errcode"
	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ErrCodeComplexityLimit is the extensions.code of rejected operations.
const ErrCodeComplexityLimit = "COMPLEXITY_LIMIT_EXCEEDED"

const complexityExtension = "ComplexityLimit"

func init() {
	errcode.RegisterErrorType(ErrCodeComplexityLimit, errcode.KindProtocol)
}

// ComplexityLimit scores each operation with the tree walker and rejects it
// before execution when the score is over Limit. A Limit of zero only
// records the score.
type ComplexityLimit struct {
	Limit     int
	Estimator complexity.Estimator
	Config    complexity.Config

	schema *ast.Schema
}

// ComplexityStats is stored in the operation context for every scored operation.
type ComplexityStats struct {
	Complexity      int
	ComplexityLimit int
}

var _ interface {
	graphql.HandlerExtension
	graphql.OperationContextMutator
} = &ComplexityLimit{}

// NewComplexityLimit returns an extension using the default count settings.
func NewComplexityLimit(limit int, est complexity.Estimator) *ComplexityLimit {
	return &ComplexityLimit{Limit: limit, Estimator: est, Config: complexity.DefaultConfig()}
}

// ExtensionName implements graphql.HandlerExtension.
func (c *ComplexityLimit) ExtensionName() string {
	return complexityExtension
}

// Validate implements graphql.HandlerExtension.
func (c *ComplexityLimit) Validate(es graphql.ExecutableSchema) error {
	if err := complexity.CheckEstimator(c.Estimator); err != nil {
		return fmt.Errorf("ComplexityLimit: %w", err)
	}
	if c.Limit < 0 {
		return errors.New("ComplexityLimit: Limit must be >= 0")
	}
	c.schema = es.Schema()
	return nil
}

// MutateOperationContext implements graphql.OperationContextMutator.
func (c *ComplexityLimit) MutateOperationContext(_ context.Context, oc *graphql.OperationContext) *gqlerror.Error {
	doc := &ast.QueryDocument{
		Operations: ast.OperationList{oc.Operation},
		Fragments:  oc.Doc.Fragments,
	}
	total, err := complexity.Complexity(doc, c.schema, c.Estimator,
		complexity.WithConfig(c.Config),
		complexity.WithVariables(oc.Variables),
	)
	if err != nil {
		return gqlerror.Errorf("compute operation complexity: %s", err)
	}

	oc.Stats.SetExtension(complexityExtension, &ComplexityStats{
		Complexity:      total,
		ComplexityLimit: c.Limit,
	})

	if c.Limit > 0 && total > c.Limit {
		gqlErr := gqlerror.Errorf("operation has complexity %d, which exceeds the limit of %d", total, c.Limit)
		errcode.Set(gqlErr, ErrCodeComplexityLimit)
		return gqlErr
	}
	return nil
}

// GetComplexityStats returns the stats recorded for the current operation,
// or nil when the extension is not installed.
func GetComplexityStats(ctx context.Context) *ComplexityStats {
	if !graphql.HasOperationContext(ctx) {
		return nil
	}
	s, _ := graphql.GetOperationContext(ctx).Stats.GetExtension(complexityExtension).(*ComplexityStats)
	return s
}
