// Package cli implements the treediff command line.
package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by all subcommands of one run.
type app struct {
	viper  *viper.Viper
	config Config
	log    *logrus.Logger
}

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd(version string) *cobra.Command {
	a := &app{viper: newViper(), log: logrus.New()}

	cmd := &cobra.Command{
		Use:   "treediff",
		Short: "Diff, patch and merge HTML documents as trees",
		Long: "treediff computes tree edit scripts between HTML documents, " +
			"turns them into path-based patches and applies or merges them.",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	addConfigFlags(cmd)

	cmd.AddCommand(newDiffCmd(a))
	cmd.AddCommand(newPatchCmd(a))
	cmd.AddCommand(newMergeCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, a.viper)
	if err != nil {
		return err
	}
	a.config = cfg

	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetLevel(logrus.WarnLevel)
	if cfg.Verbose {
		a.log.SetLevel(logrus.DebugLevel)
	}

	if f, ok := cmd.OutOrStdout().(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		color.NoColor = true
	}

	a.log.WithFields(logrus.Fields{
		"threshold":  cfg.Threshold,
		"min_height": cfg.MinHeight,
		"simplify":   cfg.Simplify,
		"format":     cfg.Format,
	}).Debug("configuration loaded")
	return nil
}
