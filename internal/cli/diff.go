package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dannyswat/treediff"
)

func newDiffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compute the delta turning OLD into NEW",
		Long:  "Compute the delta turning the HTML document OLD into NEW. Use - to read one of them from stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldHTML, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			newHTML, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}

			delta, err := treediff.Diff(oldHTML, newHTML, a.config.Author, a.config.options(a.log)...)
			if err != nil {
				return fmt.Errorf("diff failed: %w", err)
			}
			a.log.WithField("patches", len(delta.Patches)).Debug("delta computed")
			return writeDelta(cmd.OutOrStdout(), a.config.Format, delta)
		},
	}
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
