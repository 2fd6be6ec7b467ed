package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dannyswat/treediff"
)

func newMergeCmd(a *app) *cobra.Command {
	var deltaOut bool

	cmd := &cobra.Command{
		Use:   "merge BASE DELTA...",
		Short: "Merge concurrent deltas computed against the same base",
		Long: "Merge concurrent deltas computed against BASE, in the order given, " +
			"and print the merged document. Conflicts are reported and nothing is written.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseHTML, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			deltas := make([]*treediff.Delta, 0, len(args)-1)
			for _, path := range args[1:] {
				d, err := loadDelta(cmd, path)
				if err != nil {
					return err
				}
				deltas = append(deltas, d)
			}

			merged, delta, conflicts, err := treediff.MergeAll(baseHTML, deltas)
			if err != nil {
				return fmt.Errorf("merge failed: %w", err)
			}
			if len(conflicts) > 0 {
				writeConflicts(cmd.ErrOrStderr(), conflicts)
				return fmt.Errorf("%d conflicts", len(conflicts))
			}
			a.log.WithField("patches", len(delta.Patches)).Debug("deltas merged")

			if deltaOut {
				return writeDelta(cmd.OutOrStdout(), a.config.Format, delta)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), merged)
			return err
		},
	}
	cmd.Flags().BoolVar(&deltaOut, "delta", false, "print the merged delta instead of the merged document")
	return cmd
}
