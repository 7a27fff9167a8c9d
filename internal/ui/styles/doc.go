// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the assist TUI.

All colors are Lip Gloss AdaptiveColors. NewTheme picks light or dark from
the configured mode, or from the terminal background when the mode is
"auto", and builds every style the screens use.

# Colors (colors.go)

  - Purple - assistant messages and selections
  - Cyan - brand, info and focused fields
  - Emerald - success
  - Amber - warnings
  - Rose - errors and failed deliveries

Every status color has an ASCII indicator in StatusIndicators so meaning
never depends on color alone.

# Theme (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(msg.Width, msg.Height)
	box := theme.FormBox.Render(form)
*/
package styles
