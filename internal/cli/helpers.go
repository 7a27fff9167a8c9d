// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/jeranaias/assist-tui/internal/api"
	"github.com/jeranaias/assist-tui/internal/ui/components"
	"github.com/jeranaias/assist-tui/internal/util"
)

// formatBytes formats a byte count as a human-readable string.
func formatBytes(n int64) string {
	return components.FormatSize(n)
}

// oneLine collapses whitespace and truncates to width cells.
func oneLine(s string, width int) string {
	return util.TruncateWidth(strings.Join(strings.Fields(s), " "), width)
}

// authorizationList renders authorizations for display.
func authorizationList(auths []api.Authorization) string {
	if len(auths) == 0 {
		return "none"
	}
	out := make([]string, len(auths))
	for i, a := range auths {
		out[i] = strings.ToLower(strings.ReplaceAll(string(a), "_", " "))
	}
	return strings.Join(out, ", ")
}

// parseAuthorizations splits a comma list like "can_send_email,CAN_READ_DOCUMENTS".
func parseAuthorizations(s string) []api.Authorization {
	var out []api.Authorization
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, api.Authorization(strings.ToUpper(part)))
		}
	}
	return out
}
