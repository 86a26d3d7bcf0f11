package complexity

import (
	"fmt"
	"strings"
)

// Kind tags the closed set of node variants in a complexity tree.
type Kind int

const (
	KindRoot Kind = iota
	KindField
	KindListField
	KindFragmentSpread
	KindSkipped
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "RootNode"
	case KindField:
		return "Field"
	case KindListField:
		return "ListField"
	case KindFragmentSpread:
		return "FragmentSpreadNode"
	case KindSkipped:
		return "SkippedField"
	case KindMeta:
		return "MetaField"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Fragments maps fragment names to the root of their walked body. Spread
// nodes share one map per tree and only read from it.
type Fragments map[string]*Node

// Node is one element of the evaluated shape of a query.
type Node struct {
	Name       string
	Kind       Kind
	Complexity int
	// Count is the list multiplier; only meaningful for KindListField.
	Count    int
	Children []*Node

	parent    *Node
	fragments Fragments
}

// NewRoot returns an empty root node.
func NewRoot(name string) *Node {
	return &Node{Name: name, Kind: KindRoot}
}

// NewField returns a scalar or object field node.
func NewField(name string, complexity int) *Node {
	return &Node{Name: name, Kind: KindField, Complexity: complexity}
}

// NewListField returns a field node whose children are multiplied by count.
func NewListField(name string, complexity, count int) *Node {
	return &Node{Name: name, Kind: KindListField, Complexity: complexity, Count: count}
}

// NewFragmentSpread returns a lazy reference to the named fragment in fragments.
func NewFragmentSpread(name string, fragments Fragments) *Node {
	return &Node{Name: name, Kind: KindFragmentSpread, fragments: fragments}
}

// NewMetaField returns a zero-cost introspection node.
func NewMetaField(name string) *Node {
	return &Node{Name: name, Kind: KindMeta}
}

// Skip wraps an already built node. The wrapper keeps n's name and children
// so the shape stays visible, but always evaluates to zero.
func Skip(n *Node) *Node {
	s := &Node{Name: n.Name, Kind: KindSkipped, parent: n.parent}
	for _, c := range n.Children {
		s.AddChild(c)
	}
	return s
}

// AddChild attaches c as the last child of n.
func (n *Node) AddChild(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}

// Parent returns the node c was attached to, or nil for a detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Evaluate folds the subtree into its total complexity.
func (n *Node) Evaluate() int {
	return n.evaluate(newEvalState())
}

// ChildrenComplexity is the unmultiplied sum of the children's totals.
func (n *Node) ChildrenComplexity() int {
	return sumChildren(n, newEvalState())
}

// evalState tracks fragments during one evaluation: the ones currently being
// expanded (re-entry means a cycle) and the totals already computed.
type evalState struct {
	active map[string]bool
	totals map[string]int
}

func newEvalState() *evalState {
	return &evalState{active: map[string]bool{}, totals: map[string]int{}}
}

func (n *Node) evaluate(st *evalState) int {
	switch n.Kind {
	case KindRoot:
		return sumChildren(n, st)
	case KindField:
		return safeAdd(n.Complexity, sumChildren(n, st))
	case KindListField:
		return safeAdd(n.Complexity, safeMul(n.Count, sumChildren(n, st)))
	case KindFragmentSpread:
		return n.evaluateSpread(st)
	default:
		return 0
	}
}

func (n *Node) evaluateSpread(st *evalState) int {
	if total, ok := st.totals[n.Name]; ok {
		return total
	}
	root, ok := n.fragments[n.Name]
	if !ok || root == nil || st.active[n.Name] {
		return 0
	}
	st.active[n.Name] = true
	total := root.evaluate(st)
	delete(st.active, n.Name)
	st.totals[n.Name] = total
	return total
}

func sumChildren(n *Node, st *evalState) int {
	total := 0
	for _, c := range n.Children {
		total = safeAdd(total, c.evaluate(st))
	}
	return total
}

// Describe renders the subtree one node per line as `name (Kind) = value`,
// indenting children with tabs.
func (n *Node) Describe() string {
	var b strings.Builder
	n.describe(&b, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

func (n *Node) describe(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s (%s) = %d\n", strings.Repeat("\t", depth), n.Name, n.Kind, n.Evaluate())
	for _, c := range n.Children {
		c.describe(b, depth+1)
	}
}

const maxInt = int(^uint(0) >> 1)

// safeAdd is a saturating add of a and b that ignores negative operands.
// Sums that would overflow return the maximum int.
func safeAdd(a, b int) int {
	if a < 0 {
		a = 0
	}
	if b < 0 {
		b = 0
	}
	c := a + b
	if c < a {
		return maxInt
	}
	return c
}

// safeMul is the multiplicative counterpart of safeAdd.
func safeMul(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > maxInt/b {
		return maxInt
	}
	return a * b
}

// SaturatingMul multiplies two non-negative costs, returning the maximum
// int instead of wrapping. Estimators that scale costs should use it.
func SaturatingMul(a, b int) int {
	return safeMul(a, b)
}
