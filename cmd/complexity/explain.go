package main

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newExplainCmd(f *flags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how an operation's complexity is computed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			exp, err := complexity.Explain(in.query, in.doc, in.schema, in.estimator, in.options...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "text":
				_, err = fmt.Fprintln(out, exp.String())
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(exp)
			case "yaml":
				enc := yaml.NewEncoder(out)
				err = enc.Encode(exp)
				if err == nil {
					err = enc.Close()
				}
			default:
				err = fmt.Errorf("unknown format %q, want text, json or yaml", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text, json or yaml")
	return cmd
}
