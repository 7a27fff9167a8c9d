// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// formatElapsed renders d as "4s" or "1m05s".
func formatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return strconv.Itoa(secs) + "s"
	}
	mins := secs / 60
	secs %= 60
	pad := ""
	if secs < 10 {
		pad = "0"
	}
	return strconv.Itoa(mins) + "m" + pad + strconv.Itoa(secs) + "s"
}

// FormatWhen renders a timestamp relative to now, e.g. "3 minutes ago".
// Zero times render as "".
func FormatWhen(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// FormatSize renders a byte count, e.g. "1.2 MB".
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// FormatScore renders a relevance score in [0,1] as a percentage.
func FormatScore(score float64) string {
	return strconv.Itoa(int(score*100+0.5)) + "%"
}
