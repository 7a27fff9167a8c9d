// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled")

// RequireConfirmation asks before a destructive action. --yes skips the
// prompt; without a terminal, --yes is required.
//
// Example:
//
//	if err := RequireConfirmation(env, p.BoolFlag("yes"), "Delete assistant 3"); err != nil {
//	    return err
//	}
func RequireConfirmation(env *Env, yes bool, action string) error {
	if yes {
		return nil
	}
	if !env.Interactive {
		return &ValidationError{
			Field:   "--yes",
			Reason:  "confirmation required when not running in a terminal",
			Example: "add --yes to " + strings.ToLower(action),
		}
	}

	fmt.Fprintf(env.Err, "%s %s? [y/N]: ", WarningStyle.Render("[CONFIRM]"), action)
	input, err := env.reader().ReadString('\n')
	if err != nil && input == "" {
		return ErrCancelled
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return nil
	}
	return ErrCancelled
}
