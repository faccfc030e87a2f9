package cli

import (
	"fmt"
	"strings"

	"reelsmith-desktop/internal/services/templates"

	"github.com/spf13/cobra"
)

var (
	templatesSearch    string
	templatesCategory  string
	templatesMediaType string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Browse and select video templates",
	Long: `Browse the built-in template catalog and choose the template used by
the next export.

Examples:
  reelsmith templates
  reelsmith templates list --category Travel --media-type image
  reelsmith templates select business_promo`,
	RunE: runTemplatesList,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show template details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

var templatesSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Select the template for the next export",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesSelect,
}

func init() {
	for _, c := range []*cobra.Command{templatesCmd, templatesListCmd} {
		c.Flags().StringVarP(&templatesSearch, "search", "q", "", "search name, description, effects and use cases")
		c.Flags().StringVarP(&templatesCategory, "category", "c", templates.FilterAll, "category filter")
		c.Flags().StringVarP(&templatesMediaType, "media-type", "m", templates.FilterAll, "image, video or mixed")
	}

	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesSelectCmd)
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	list := svc.Templates.Filter(templates.Filter{
		Search:    templatesSearch,
		Category:  templatesCategory,
		MediaType: templatesMediaType,
	})
	if len(list) == 0 {
		fmt.Fprintln(out, "No templates match")
		return nil
	}

	selected, _ := svc.Templates.Selected()
	fmt.Fprintf(out, "  %-20s %-26s %-12s %-8s %s\n", "ID", "NAME", "CATEGORY", "MEDIA", "DURATION")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 80))
	for _, t := range list {
		marker := " "
		if t.ID == selected.ID {
			marker = "*"
		}
		name := t.Name
		if t.IsNew {
			name += " (new)"
		}
		fmt.Fprintf(out, "%s %-20s %-26s %-12s %-8s %s\n", marker, t.ID, name, t.Category, t.MediaType, t.Duration)
	}
	return nil
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	t, err := svc.Templates.Get(args[0])
	if err != nil {
		return cliError(err, "get template")
	}
	fmt.Fprintf(out, "%s (%s)\n", t.Name, t.ID)
	fmt.Fprintf(out, "  %s\n", t.Description)
	fmt.Fprintf(out, "  Category: %s\n", t.Category)
	fmt.Fprintf(out, "  Media: %s\n", t.MediaType)
	fmt.Fprintf(out, "  Output: %s @ %d fps, %s\n", t.OutputSpecs.Resolution, t.OutputSpecs.FPS, t.Duration)
	fmt.Fprintf(out, "  Effects: %s\n", strings.Join(t.Effects, ", "))
	fmt.Fprintf(out, "  Transitions: %s\n", t.Transitions)
	fmt.Fprintf(out, "  Formats: %s\n", strings.Join(t.SupportedFormats, ", "))
	fmt.Fprintf(out, "  Use cases: %s\n", strings.Join(t.UseCases, ", "))
	return nil
}

func runTemplatesSelect(cmd *cobra.Command, args []string) error {
	t, err := svc.SelectTemplate(args[0])
	if err != nil {
		return cliError(err, "select template")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s template selected successfully!\n", t.Name)
	return nil
}
