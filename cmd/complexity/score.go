package main

import (
	"fmt"

	"github.com/couchcryptid/graphql-complexity-gateway/complexity"
	"github.com/spf13/cobra"
)

func newScoreCmd(f *flags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Print the complexity of an operation",
		Long:  "Print the complexity of an operation. Exits with status 2 when --max is exceeded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			total, err := complexity.Complexity(in.doc, in.schema, in.estimator, in.options...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), total)

			if limit > 0 && total > limit {
				return &exitError{code: 2, err: fmt.Errorf("complexity %d exceeds the limit of %d", total, limit)}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "max", 0, "fail when the score is above this value")
	return cmd
}
