package cli

import (
	"fmt"

	"reelsmith-desktop/internal/apperr"
)

// cliError prefixes err with the failed action, preferring the message
// meant for users when the error carries one.
func cliError(err error, action string) error {
	if msg := apperr.Message(err, ""); msg != "" {
		return fmt.Errorf("%s: %s", action, msg)
	}
	return fmt.Errorf("%s: %w", action, err)
}
