package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/couchcryptid/graphql-complexity-gateway/estimator"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type flags struct {
	schemaPath string
	queryFile  string
	query      string
	variables  string
	operation  string

	estimator         string
	fieldComplexity   int
	defaultComplexity int
	directive         string
	multipliers       []string

	countArg     string
	countMissing int
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "complexity",
		Short: "Score GraphQL operations before they run",
		Long: `complexity computes the cost of a GraphQL operation against a schema,
the same way the gateway does, and explains how the score was reached.`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.schemaPath, "schema", "s", "", "path to the schema SDL file (required)")
	pf.StringVarP(&f.queryFile, "query-file", "f", "-", "file holding the operation, - for stdin")
	pf.StringVarP(&f.query, "query", "q", "", "operation text; overrides --query-file")
	pf.StringVar(&f.variables, "variables", "", "request variables as a JSON object")
	pf.StringVar(&f.operation, "operation", "", "score only the named operation")
	pf.StringVarP(&f.estimator, "estimator", "e", estimator.KindSimple, "estimator: simple, directive or arguments")
	pf.IntVar(&f.fieldComplexity, "complexity", 1, "per-field cost of the simple and arguments estimators")
	pf.IntVar(&f.defaultComplexity, "default-complexity", estimator.DefaultMissingComplexity, "cost of fields without a directive")
	pf.StringVar(&f.directive, "directive", estimator.DefaultDirectiveName, "directive holding declared costs")
	pf.StringSliceVar(&f.multipliers, "multipliers", []string{"first", "last", "limit"}, "arguments read by the arguments estimator")
	pf.StringVar(&f.countArg, "count-arg", "first", "list size argument, empty to disable multipliers")
	pf.IntVar(&f.countMissing, "count-default", 1, "list size when the count argument is absent")

	cmd.AddCommand(newScoreCmd(f), newExplainCmd(f))
	return cmd
}

// inputs is everything needed to score one operation.
type inputs struct {
	query     string
	doc       *ast.QueryDocument
	schema    *ast.Schema
	estimator complexity.Estimator
	options   []complexity.Option
}

func (f *flags) load(stdin io.Reader) (*inputs, error) {
	if f.schemaPath == "" {
		return nil, errors.New("--schema is required")
	}
	sdl, err := os.ReadFile(f.schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := gqlparser.LoadSchema(&ast.Source{Name: f.schemaPath, Input: string(sdl)})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	est, err := estimator.Build(estimator.Settings{
		Kind:              f.estimator,
		Complexity:        f.fieldComplexity,
		DefaultComplexity: f.defaultComplexity,
		DirectiveName:     f.directive,
		Multipliers:       f.multipliers,
	}, string(sdl))
	if err != nil {
		return nil, err
	}

	query, err := f.readQuery(stdin)
	if err != nil {
		return nil, err
	}
	doc, err := complexity.ParseQuery(query)
	if err != nil {
		return nil, err
	}

	var vars map[string]any
	if f.variables != "" {
		if err := json.Unmarshal([]byte(f.variables), &vars); err != nil {
			return nil, fmt.Errorf("parse --variables: %w", err)
		}
	}

	return &inputs{
		query:     query,
		doc:       doc,
		schema:    s,
		estimator: est,
		options: []complexity.Option{
			complexity.WithConfig(complexity.Config{
				CountArgName:         strings.TrimSpace(f.countArg),
				CountMissingArgValue: f.countMissing,
			}),
			complexity.WithVariables(vars),
			complexity.WithOperationName(f.operation),
		},
	}, nil
}

func (f *flags) readQuery(stdin io.Reader) (string, error) {
	if f.query != "" {
		return f.query, nil
	}
	var (
		b   []byte
		err error
	)
	if f.queryFile == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(f.queryFile)
	}
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errors.New("no query provided")
	}
	return string(b), nil
}
