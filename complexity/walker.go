package complexity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

type options struct {
	config    Config
	variables map[string]any
	operation string
}

// Option customizes a single tree build.
type Option func(*options)

// WithConfig overrides DefaultConfig.
func WithConfig(c Config) Option {
	return func(o *options) { o.config = c }
}

// WithVariables supplies request variables. They take precedence over the
// defaults declared in the document.
func WithVariables(vars map[string]any) Option {
	return func(o *options) { o.variables = vars }
}

// WithOperationName restricts the walk to one named operation. By default
// every operation in the document is walked and their costs are summed.
func WithOperationName(name string) Option {
	return func(o *options) { o.operation = name }
}

// BuildTree walks doc against schema and returns the root of a fresh
// complexity tree. Fragment definitions are collected before any operation
// is walked, so spreads resolve regardless of where their definition appears.
func BuildTree(doc *ast.QueryDocument, schema *ast.Schema, est Estimator, opts ...Option) (*Node, error) {
	if err := CheckEstimator(est); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("complexity: nil query document")
	}
	if schema == nil {
		return nil, errors.New("complexity: nil schema")
	}

	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	ops, err := selectOperations(doc, o.operation)
	if err != nil {
		return nil, err
	}

	w := &walker{
		schema:    schema,
		estimator: est,
		config:    o.config,
		variables: collectVariables(ops, o.variables),
		fragments: make(Fragments, len(doc.Fragments)),
	}

	for _, f := range doc.Fragments {
		root := NewRoot(f.Name)
		w.walkSelectionSet(root, schema.Types[f.TypeCondition], f.SelectionSet, nil)
		w.fragments[f.Name] = root
	}

	root := NewRoot("root")
	for _, op := range ops {
		w.walkSelectionSet(root, w.operationType(op.Operation), op.SelectionSet, nil)
	}
	return root, nil
}

func selectOperations(doc *ast.QueryDocument, name string) (ast.OperationList, error) {
	if name == "" {
		return doc.Operations, nil
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, fmt.Errorf("complexity: operation %q not found", name)
	}
	return ast.OperationList{op}, nil
}

// collectVariables seeds the variable map with declared defaults and lets the
// request values override them.
func collectVariables(ops ast.OperationList, request map[string]any) map[string]any {
	vars := make(map[string]any, len(request))
	for _, op := range ops {
		for _, def := range op.VariableDefinitions {
			if def.DefaultValue == nil {
				continue
			}
			if v, err := def.DefaultValue.Value(nil); err == nil {
				vars[def.Variable] = v
			}
		}
	}
	for k, v := range request {
		vars[k] = v
	}
	return vars
}

type walker struct {
	schema    *ast.Schema
	estimator Estimator
	config    Config
	variables map[string]any
	fragments Fragments
}

func (w *walker) operationType(op ast.Operation) *ast.Definition {
	switch op {
	case ast.Mutation:
		return w.schema.Mutation
	case ast.Subscription:
		return w.schema.Subscription
	default:
		return w.schema.Query
	}
}

func (w *walker) walkSelectionSet(parent *Node, parentType *ast.Definition, set ast.SelectionSet, path ast.Path) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			w.walkField(parent, parentType, s, path)

		case *ast.InlineFragment:
			typ := parentType
			if s.TypeCondition != "" {
				typ = w.schema.Types[s.TypeCondition]
			}
			if w.included(s.Directives) {
				w.walkSelectionSet(parent, typ, s.SelectionSet, path)
				continue
			}
			// Inline fragments have no node of their own: each of the
			// excluded fields is wrapped separately.
			holder := NewRoot("")
			w.walkSelectionSet(holder, typ, s.SelectionSet, path)
			for _, c := range holder.Children {
				parent.AddChild(Skip(c))
			}

		case *ast.FragmentSpread:
			w.attach(parent, NewFragmentSpread(s.Name, w.fragments), s.Directives)
		}
	}
}

func (w *walker) walkField(parent *Node, parentType *ast.Definition, f *ast.Field, path ast.Path) {
	key := f.Alias
	if key == "" {
		key = f.Name
	}
	fieldPath := append(path[:len(path):len(path)], ast.PathName(key))
	info := w.fieldInfo(parentType, f)

	if isMeta(f, info) {
		w.attach(parent, NewMetaField(f.Name), f.Directives)
		return
	}

	c := w.estimator.FieldComplexity(f, info, fieldPath)
	if c < 0 {
		c = 0
	}

	var n *Node
	if isList(info.Type) {
		n = NewListField(f.Name, c, w.count(f))
	} else {
		n = NewField(f.Name, c)
	}
	w.walkSelectionSet(n, info.NamedType, f.SelectionSet, fieldPath)
	w.attach(parent, n, f.Directives)
}

// attach adds n to parent, wrapping it in a skipped node when the
// selection's directives exclude it.
func (w *walker) attach(parent, n *Node, directives ast.DirectiveList) {
	if !w.included(directives) {
		n = Skip(n)
	}
	parent.AddChild(n)
}

func (w *walker) fieldInfo(parentType *ast.Definition, f *ast.Field) FieldInfo {
	info := FieldInfo{ParentType: parentType}

	var def *ast.FieldDefinition
	if parentType != nil {
		def = parentType.Fields.ForName(f.Name)
	}
	if def == nil {
		def = f.Definition
	}
	if def == nil || def.Type == nil {
		return info
	}

	info.Definition = def
	info.Type = def.Type
	info.NamedType = w.schema.Types[def.Type.Name()]
	return info
}

// isMeta reports whether f is `__typename` or part of introspection. Names
// starting with a double underscore are reserved for introspection.
func isMeta(f *ast.Field, info FieldInfo) bool {
	if strings.HasPrefix(f.Name, "__") {
		return true
	}
	return info.NamedType != nil && strings.HasPrefix(info.NamedType.Name, "__")
}

// isList reports whether t is a list type. Non-null is a flag on ast.Type,
// so `[T!]!` is detected the same way as `[T]`.
func isList(t *ast.Type) bool {
	return t != nil && t.Elem != nil
}
