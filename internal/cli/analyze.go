package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	analyzeSave bool
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <reel-url>",
	Short: "Analyze the visual style of an Instagram Reel",
	Long: `Send a Reel URL to the configured AI provider and print the style
description and tags.

Examples:
  reelsmith analyze https://www.instagram.com/reel/Cxyz123/
  reelsmith analyze --save https://www.instagram.com/reel/Cxyz123/`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeSave, "save", "s", false, "save the result to the ideas collection")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	result, err := svc.AnalyzeReel(cmd.Context(), args[0])
	if err != nil {
		return cliError(err, "analyze reel")
	}

	if analyzeJSON {
		if err := printJSON(out, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Reel: %s\n\n", result.ReelURL)
		fmt.Fprintf(out, "%s\n\n", result.StyleDescription)
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(result.StyleTags, ", "))
	}

	if analyzeSave {
		idea, err := svc.SaveAnalysis(result)
		if err != nil {
			return cliError(err, "save analysis")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved as idea %s\n", idea.ID)
	}
	return nil
}
