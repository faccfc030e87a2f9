package cli

import (
	"fmt"
	"os"

	"reelsmith-desktop/internal/crypto"

	"github.com/spf13/cobra"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the Gemini API key",
	Long: `Store the Gemini API key encrypted in the local database, test it, or
remove it. A GEMINI_API_KEY environment variable always takes precedence.

Examples:
  reelsmith apikey set AIza...
  reelsmith apikey test
  reelsmith apikey status`,
}

var apikeySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Store an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.SaveAPIKey(args[0]); err != nil {
			return cliError(err, "save API key")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
		return nil
	},
}

var apikeyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.SaveAPIKey(""); err != nil {
			return cliError(err, "remove API key")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stored API key removed")
		return nil
	},
}

var apikeyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the active API key comes from",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Provider: %s\n", cfg.LLMProvider)
		fmt.Fprintf(cmd.OutOrStdout(), "Gemini key source: %s\n", svc.Credentials.Source())
		switch {
		case os.Getenv("ENCRYPTION_KEY") != "":
			fmt.Fprintln(cmd.OutOrStdout(), "Encryption key: ENCRYPTION_KEY")
		case crypto.IsKeyStored():
			fmt.Fprintln(cmd.OutOrStdout(), "Encryption key: system keychain")
		default:
			fmt.Fprintln(cmd.OutOrStdout(), "Encryption key: not stored")
		}
		return nil
	},
}

var apikeyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that the configured provider accepts the credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.Analysis.TestAPIKey(cmd.Context()); err != nil {
			return cliError(err, "test API key")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key is valid")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyClearCmd)
	apikeyCmd.AddCommand(apikeyStatusCmd)
	apikeyCmd.AddCommand(apikeyTestCmd)
}
