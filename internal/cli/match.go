package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(notesCmd)
}

var matchCmd = &cobra.Command{
	Use:   "match <hz>",
	Short: "Judges a frequency against the reference table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		frequency, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid frequency %q: %w", args[0], err)
		}

		matcher, err := newMatcher()
		if err != nil {
			return err
		}
		result, err := matcher.Match(frequency)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), result.Feedback)
		return nil
	},
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Lists the reference notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		matcher, err := newMatcher()
		if err != nil {
			return err
		}
		for _, note := range matcher.Table().Notes() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-4s %8.2f Hz\n", note.Name, note.Frequency)
		}
		return nil
	},
}
