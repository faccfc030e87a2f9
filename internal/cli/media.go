package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage the media workspace",
	Long: `Add, list, reorder and remove the photos and videos used by the next
export. Accepted formats: JPG, JPEG, PNG, MP4, MOV (up to 100 MB each).

Examples:
  reelsmith media add ./beach.jpg ./sunset.mov
  reelsmith media reorder 1 0
  reelsmith media clear`,
	RunE: runMediaList,
}

var mediaAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Copy files into the workspace",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMediaAdd,
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspace files in export order",
	RunE:  runMediaList,
}

var mediaRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a file from the workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runMediaRemove,
}

var mediaReorderCmd = &cobra.Command{
	Use:   "reorder <from> <to>",
	Short: "Move the file at position from to position to (zero-based)",
	Args:  cobra.ExactArgs(2),
	RunE:  runMediaReorder,
}

var mediaClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every file from the workspace",
	RunE:  runMediaClear,
}

func init() {
	mediaCmd.AddCommand(mediaAddCmd)
	mediaCmd.AddCommand(mediaListCmd)
	mediaCmd.AddCommand(mediaRemoveCmd)
	mediaCmd.AddCommand(mediaReorderCmd)
	mediaCmd.AddCommand(mediaClearCmd)
}

func runMediaAdd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var failed int
	for _, path := range args {
		item, err := svc.Media.AddFile(cmd.Context(), path, nil)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Failed to add %s: %v\n", path, cliError(err, "upload"))
			continue
		}
		fmt.Fprintf(out, "Added %s (%s, %s) as %s\n", item.Name, item.Type, humanSize(item.Size), item.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be added", failed, len(args))
	}
	return nil
}

func runMediaList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	items := svc.Media.Items()
	if len(items) == 0 {
		fmt.Fprintln(out, "Workspace is empty")
		return nil
	}

	fmt.Fprintf(out, "%-4s %-38s %-30s %-16s %s\n", "POS", "ID", "NAME", "TYPE", "SIZE")
	fmt.Fprintln(out, strings.Repeat("-", 100))
	for i, item := range items {
		fmt.Fprintf(out, "%-4d %-38s %-30s %-16s %s\n", i, item.ID, truncate(item.Name, 30), item.Type, humanSize(item.Size))
	}
	fmt.Fprintf(out, "\n%d file(s), %s total\n", len(items), humanSize(svc.Media.TotalSize()))
	return nil
}

func runMediaRemove(cmd *cobra.Command, args []string) error {
	if err := svc.RemoveMedia(args[0]); err != nil {
		return cliError(err, "remove media")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runMediaReorder(cmd *cobra.Command, args []string) error {
	from, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[0])
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[1])
	}
	if err := svc.ReorderMedia(from, to); err != nil {
		return cliError(err, "reorder media")
	}
	return runMediaList(cmd, nil)
}

func runMediaClear(cmd *cobra.Command, args []string) error {
	if err := svc.ClearMedia(); err != nil {
		return cliError(err, "clear media")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Workspace cleared")
	return nil
}
