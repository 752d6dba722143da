// Package cli implements the tunecheck command line tool.
package cli

import (
	"os"

	"github.com/RMahshie/tunecheck/internal/app"
	"github.com/RMahshie/tunecheck/internal/config"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	toleranceCents float64
	referenceA4    float64
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "tunecheck",
	Short: "Pitch feedback for recorded notes",
	Long: `tunecheck estimates the pitch of a recorded note and reports the closest
reference note and how many cents sharp or flat it is.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)
	},
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&toleranceCents, "tolerance", tuning.DefaultToleranceCents, "half-width of the in-tune window in cents")
	rootCmd.PersistentFlags().Float64Var(&referenceA4, "a4", 0, "reference A4 in Hz; 0 uses the built-in C4..C6 table")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log analysis details")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newMatcher() (*tuning.Matcher, error) {
	return app.NewMatcher(config.TuningConfig{
		ToleranceCents: toleranceCents,
		ReferenceA4:    referenceA4,
	})
}
