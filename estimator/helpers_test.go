package estimator

import (
	"testing"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

func score(t *testing.T, sdl, query string, est complexity.Estimator) int {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	require.NoError(t, err)
	doc, err := complexity.ParseQuery(query)
	require.NoError(t, err)
	total, err := complexity.Complexity(doc, schema, est)
	require.NoError(t, err)
	return total
}
