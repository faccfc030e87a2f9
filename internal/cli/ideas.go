package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelsmith-desktop/internal/services/ideas"

	"github.com/spf13/cobra"
)

var (
	ideasSearch string
	ideasTags   []string
	ideasSort   string
	ideasJSON   bool
	ideasOut    string
)

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Manage saved Reel analyses",
	Long: `List, inspect, delete and export saved Reel analyses.

Examples:
  reelsmith ideas
  reelsmith ideas list --search sunset --tags "Warm Tones" --sort mostTags
  reelsmith ideas show reel_1712345678901
  reelsmith ideas export --out ./ideas.json`,
	RunE: runIdeasList,
}

var ideasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved ideas",
	RunE:  runIdeasList,
}

var ideasShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one idea",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeasShow,
}

var ideasDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an idea",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdeasDelete,
}

var ideasTagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags used by saved ideas",
	RunE:  runIdeasTags,
}

var ideasExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ideas collection to a JSON file",
	RunE:  runIdeasExport,
}

func init() {
	for _, c := range []*cobra.Command{ideasCmd, ideasListCmd} {
		c.Flags().StringVarP(&ideasSearch, "search", "q", "", "search URL, description and tags")
		c.Flags().StringSliceVarP(&ideasTags, "tags", "t", nil, "require all of these tags")
		c.Flags().StringVar(&ideasSort, "sort", ideas.SortNewest, "newest, oldest, alphabetical or mostTags")
		c.Flags().BoolVar(&ideasJSON, "json", false, "print as JSON")
	}
	ideasExportCmd.Flags().StringVarP(&ideasOut, "out", "o", "", "output file (default: dated file in the current directory)")

	ideasCmd.AddCommand(ideasListCmd)
	ideasCmd.AddCommand(ideasShowCmd)
	ideasCmd.AddCommand(ideasDeleteCmd)
	ideasCmd.AddCommand(ideasTagsCmd)
	ideasCmd.AddCommand(ideasExportCmd)
}

func runIdeasList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	list, err := svc.Ideas.Query(ideas.Query{Search: ideasSearch, Tags: ideasTags, Sort: ideasSort})
	if err != nil {
		return cliError(err, "list ideas")
	}
	if ideasJSON {
		return printJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No ideas found")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-17s %-45s %s\n", "ID", "SAVED", "URL", "TAGS")
	fmt.Fprintln(out, strings.Repeat("-", 110))
	for _, idea := range list {
		fmt.Fprintf(out, "%-20s %-17s %-45s %s\n",
			idea.ID, formatTime(idea.CreatedAt), truncate(idea.URL, 45), strings.Join(idea.StyleTags, ", "))
	}
	fmt.Fprintf(out, "\n%d idea(s)\n", len(list))
	return nil
}

func runIdeasShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	idea, err := svc.Ideas.Get(args[0])
	if err != nil {
		return cliError(err, "get idea")
	}
	fmt.Fprintf(out, "Idea: %s\n", idea.ID)
	fmt.Fprintf(out, "  URL: %s\n", idea.URL)
	fmt.Fprintf(out, "  Analyzed: %s\n", formatTime(idea.Timestamp))
	fmt.Fprintf(out, "  Saved: %s\n", formatTime(idea.CreatedAt))
	fmt.Fprintf(out, "  Tags: %s\n\n", strings.Join(idea.StyleTags, ", "))
	fmt.Fprintln(out, idea.StyleDescription)
	return nil
}

func runIdeasDelete(cmd *cobra.Command, args []string) error {
	if err := svc.DeleteIdea(args[0]); err != nil {
		return cliError(err, "delete idea")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted idea %s\n", args[0])
	return nil
}

func runIdeasTags(cmd *cobra.Command, args []string) error {
	tags, err := svc.Ideas.AvailableTags()
	if err != nil {
		return cliError(err, "list tags")
	}
	for _, tag := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), tag)
	}
	return nil
}

func runIdeasExport(cmd *cobra.Command, args []string) error {
	filename, data, err := svc.Ideas.ExportJSON()
	if err != nil {
		return cliError(err, "export ideas")
	}
	path := ideasOut
	if path == "" {
		path = filepath.Join(".", filename)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported ideas to %s\n", path)
	return nil
}
