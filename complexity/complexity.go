// Package complexity estimates the cost of GraphQL operations before they run.
//
// A walk over a query document builds a tree of weighted nodes: each field
// gets a base complexity from a pluggable Estimator, list fields multiply
// their children by a count read from an argument, fragment spreads resolve
// lazily by name, and selections excluded by @skip/@include keep their shape
// but cost nothing. Evaluating the tree folds it into a single score.
package complexity

import "github.com/vektah/gqlparser/v2/ast"

// Complexity returns the total score of doc.
func Complexity(doc *ast.QueryDocument, schema *ast.Schema, est Estimator, opts ...Option) (int, error) {
	tree, err := BuildTree(doc, schema, est, opts...)
	if err != nil {
		return 0, err
	}
	return tree.Evaluate(), nil
}

// Analyzer scores raw query text, reusing parsed documents across calls.
type Analyzer struct {
	cache *DocumentCache
}

// NewAnalyzer returns an Analyzer backed by cache. A nil cache parses every
// query afresh.
func NewAnalyzer(cache *DocumentCache) *Analyzer {
	return &Analyzer{cache: cache}
}

// Parse returns the document for query.
func (a *Analyzer) Parse(query string) (*ast.QueryDocument, error) {
	if a.cache == nil {
		return ParseQuery(query)
	}
	return a.cache.Parse(query)
}

// Complexity parses query and returns its total score.
func (a *Analyzer) Complexity(query string, schema *ast.Schema, est Estimator, opts ...Option) (int, error) {
	doc, err := a.Parse(query)
	if err != nil {
		return 0, err
	}
	return Complexity(doc, schema, est, opts...)
}

// Explain parses query and explains its score.
func (a *Analyzer) Explain(query string, schema *ast.Schema, est Estimator, opts ...Option) (*Explanation, error) {
	doc, err := a.Parse(query)
	if err != nil {
		return nil, err
	}
	return Explain(query, doc, schema, est, opts...)
}
