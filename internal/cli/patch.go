package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dannyswat/treediff"
)

func newPatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "patch BASE DELTA",
		Short: "Apply a delta to the document it was computed from",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseHTML, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			delta, err := loadDelta(cmd, args[1])
			if err != nil {
				return err
			}

			patched, err := treediff.ApplyDelta(baseHTML, delta, treediff.WithLogger(a.log))
			if err != nil {
				return fmt.Errorf("patch failed: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), patched)
			return err
		},
	}
}

func loadDelta(cmd *cobra.Command, path string) (*treediff.Delta, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	delta, err := readDelta([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return delta, nil
}
