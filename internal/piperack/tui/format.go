package tui

import (
	"fmt"
	"strings"
	"time"
)

// formatDuration renders d as MM:SS, matching the status line's elapsed
// runtime display.
func formatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	minutes := secs / 60
	seconds := secs % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// sanitizeName maps a process name to one safe for use as a path component
// (log file names, generated identifiers): anything outside
// [A-Za-z0-9_-] becomes an underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
