package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dannyswat/treediff"
)

// EnvPrefix is the prefix of environment variables overriding flags,
// e.g. TREEDIFF_MIN_HEIGHT.
const EnvPrefix = "TREEDIFF"

const (
	keyConfig    = "config"
	keyThreshold = "threshold"
	keyMinHeight = "min-height"
	keySimplify  = "simplify"
	keyVerify    = "verify"
	keyFormat    = "format"
	keyVerbose   = "verbose"
	keyAuthor    = "author"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// Config is the resolved configuration of one command run.
type Config struct {
	Threshold float64
	MinHeight int
	Simplify  bool
	Verify    bool
	Format    string
	Verbose   bool
	Author    string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigName(".treediff")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return v
}

func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(keyConfig, "", "config file (default ./.treediff.yaml)")
	flags.Float64(keyThreshold, treediff.DefaultSimilarityThreshold, "minimum label similarity for matching changed leaves")
	flags.Int(keyMinHeight, 1, "minimum subtree height for exact subtree matching")
	flags.Bool(keySimplify, true, "collapse whole-subtree operations")
	flags.Bool(keyVerify, false, "replay the patches and check the result while diffing")
	flags.StringP(keyFormat, "f", FormatJSON, "output format for deltas (json, yaml, text)")
	flags.BoolP(keyVerbose, "v", false, "enable debug logging")
	flags.String(keyAuthor, "", "author recorded in new deltas")
}

// loadConfig merges flags, environment and the optional config file.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (Config, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return Config{}, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString(keyConfig); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		Threshold: v.GetFloat64(keyThreshold),
		MinHeight: v.GetInt(keyMinHeight),
		Simplify:  v.GetBool(keySimplify),
		Verify:    v.GetBool(keyVerify),
		Format:    strings.ToLower(v.GetString(keyFormat)),
		Verbose:   v.GetBool(keyVerbose),
		Author:    v.GetString(keyAuthor),
	}
	switch cfg.Format {
	case FormatJSON, FormatYAML, FormatText:
	default:
		return Config{}, fmt.Errorf("unknown format %q", cfg.Format)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return Config{}, fmt.Errorf("threshold %v is outside [0, 1]", cfg.Threshold)
	}
	return cfg, nil
}

func (c Config) options(log logrus.FieldLogger) []treediff.Option {
	return []treediff.Option{
		treediff.WithSimilarityThreshold(c.Threshold),
		treediff.WithMinHeight(c.MinHeight),
		treediff.WithSimplify(c.Simplify),
		treediff.WithVerify(c.Verify),
		treediff.WithLogger(log),
	}
}
