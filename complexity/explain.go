package complexity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Reasons reported for nodes that contribute nothing.
const (
	ReasonSkipped = "field was skipped due to @skip or @include directive"
	ReasonMeta    = "meta fields like __typename have zero complexity"
)

// FieldExplanation is one line of the per-field breakdown.
type FieldExplanation struct {
	Path               string `json:"path" yaml:"path"`
	Name               string `json:"name" yaml:"name"`
	Kind               string `json:"type" yaml:"type"`
	FieldComplexity    int    `json:"field_complexity" yaml:"field_complexity"`
	ChildrenComplexity int    `json:"children_complexity" yaml:"children_complexity"`
	TotalComplexity    int    `json:"total_complexity" yaml:"total_complexity"`
	Multiplier         *int   `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Fragment           string `json:"fragment,omitempty" yaml:"fragment,omitempty"`
	Reason             string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (f FieldExplanation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", f.Path, f.Kind)
	if f.Multiplier != nil {
		fmt.Fprintf(&b, " [multiplier: %d]", *f.Multiplier)
	}
	fmt.Fprintf(&b, "\n  Field complexity: %d", f.FieldComplexity)
	if f.ChildrenComplexity != 0 {
		fmt.Fprintf(&b, "\n  Children complexity: %d", f.ChildrenComplexity)
		if f.Multiplier != nil {
			fmt.Fprintf(&b, " x %d = %d", *f.Multiplier, safeMul(f.ChildrenComplexity, *f.Multiplier))
		}
	}
	if f.Reason != "" {
		fmt.Fprintf(&b, "\n  Reason: %s", f.Reason)
	}
	fmt.Fprintf(&b, "\n  Total: %d", f.TotalComplexity)
	return b.String()
}

// EstimatorInfo names the estimator used for an explanation.
type EstimatorInfo struct {
	Name    string         `json:"name" yaml:"name"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Explanation is the complete account of one complexity calculation.
type Explanation struct {
	TotalComplexity int                `json:"total_complexity" yaml:"total_complexity"`
	Estimator       EstimatorInfo      `json:"estimator" yaml:"estimator"`
	Tree            string             `json:"tree" yaml:"tree"`
	Breakdown       []FieldExplanation `json:"breakdown" yaml:"breakdown"`
	Query           string             `json:"query,omitempty" yaml:"query,omitempty"`
}

func (e *Explanation) String() string {
	rule := strings.Repeat("=", 80)
	sep := strings.Repeat("-", 80)

	lines := []string{
		rule,
		"GraphQL Complexity Explanation",
		rule,
		"",
		fmt.Sprintf("Total Complexity: %d", e.TotalComplexity),
		"",
		"Estimator Used:",
		"  Name: " + e.Estimator.Name,
	}
	if len(e.Estimator.Details) > 0 {
		lines = append(lines, "  Details:")
		keys := make([]string, 0, len(e.Estimator.Details))
		for k := range e.Estimator.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("    %s: %v", k, e.Estimator.Details[k]))
		}
	}
	lines = append(lines, "", "Complexity Tree:", sep, e.Tree, "", "Field-by-Field Breakdown:", sep)
	for _, f := range e.Breakdown {
		lines = append(lines, f.String(), "")
	}
	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

// Explain builds the tree for doc and reports how its total was reached.
// query is echoed back in the result and may be empty.
func Explain(query string, doc *ast.QueryDocument, schema *ast.Schema, est Estimator, opts ...Option) (*Explanation, error) {
	tree, err := BuildTree(doc, schema, est, opts...)
	if err != nil {
		return nil, err
	}
	return &Explanation{
		TotalComplexity: tree.Evaluate(),
		Estimator:       describeEstimator(est),
		Tree:            tree.Describe(),
		Breakdown:       Breakdown(tree),
		Query:           query,
	}, nil
}

func describeEstimator(est Estimator) EstimatorInfo {
	if d, ok := est.(Describer); ok {
		return EstimatorInfo{Name: d.Name(), Details: d.Details()}
	}
	name := fmt.Sprintf("%T", est)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return EstimatorInfo{Name: name}
}

// Breakdown flattens the tree depth-first into one entry per non-root node.
// Paths join node names with dots and omit the root.
func Breakdown(tree *Node) []FieldExplanation {
	var out []FieldExplanation
	for _, c := range tree.Children {
		out = appendBreakdown(out, c, "")
	}
	return out
}

func appendBreakdown(out []FieldExplanation, n *Node, prefix string) []FieldExplanation {
	path := n.Name
	if prefix != "" {
		path = prefix + "." + n.Name
	}

	e := FieldExplanation{Path: path, Name: n.Name, Kind: n.Kind.String()}
	switch n.Kind {
	case KindField:
		e.FieldComplexity = n.Complexity
		e.ChildrenComplexity = n.ChildrenComplexity()
		e.TotalComplexity = n.Evaluate()
	case KindListField:
		count := n.Count
		e.FieldComplexity = n.Complexity
		e.ChildrenComplexity = n.ChildrenComplexity()
		e.TotalComplexity = n.Evaluate()
		e.Multiplier = &count
	case KindFragmentSpread:
		e.ChildrenComplexity = n.Evaluate()
		e.TotalComplexity = e.ChildrenComplexity
		e.Fragment = n.Name
	case KindSkipped:
		e.Reason = ReasonSkipped
	case KindMeta:
		e.Reason = ReasonMeta
	case KindRoot:
	}
	out = append(out, e)

	for _, c := range n.Children {
		out = appendBreakdown(out, c, path)
	}
	return out
}
