package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kingrea/protest-validator/internal/submission"
)

func newSummaryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary [workbook]",
		Short: "Print review progress for a workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(flags, args)
			if err != nil {
				return err
			}
			defer env.Close()
			writeSummary(cmd.OutOrStdout(), env.workbook, env.session.Summary())
			return nil
		},
	}
}

func writeSummary(w io.Writer, workbook string, sum submission.Summary) {
	fmt.Fprintf(w, "%s\n", workbook)
	fmt.Fprintf(w, "  total      %d\n", sum.Total)
	fmt.Fprintf(w, "  pending    %d\n", sum.Pending)
	fmt.Fprintf(w, "  validated  %d\n", sum.Validated)
	fmt.Fprintf(w, "  rejected   %d\n", sum.Rejected)
	if classes := sum.Classifications(); len(classes) > 0 {
		fmt.Fprintln(w, "  by type")
		for _, c := range classes {
			fmt.Fprintf(w, "    %-10s %d\n", c, sum.ByClassification[c])
		}
	}
}
