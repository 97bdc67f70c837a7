// Package output provides terminal output utilities for btrbak.
//
// This package includes:
//   - Table rendering for run history and pruned snapshots
//   - A spinner for long-running operations such as snapshot transfers
//   - Human-readable formatting for ages and durations
//
// All table rendering functions use ASCII characters and ANSI color codes for terminal output.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/btrbak/internal/store"
)

// ANSI color codes for run status display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderRunTable renders the run history, newest first as listed.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-15s %-10s %-10s %-34s %s\n",
		"ID", "Started", "Duration", "Status", "Snapshot", "Detail"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, run := range runs {
		started := humanize.Time(run.StartedAt)

		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}

		snapshotName := "-"
		if run.SnapshotPath != "" {
			snapshotName = truncate(baseName(run.SnapshotPath), 34)
		}

		detail := ""
		switch {
		case run.Error != "":
			detail = truncate(run.Error, 40)
		case run.ParentPath != "":
			detail = "incremental"
		case run.Status == store.StatusSucceeded:
			detail = "full"
		}

		sb.WriteString(fmt.Sprintf("%-5d %-15s %-10s %s %-34s %s\n",
			run.ID,
			started,
			duration,
			formatStatus(run.Status),
			snapshotName,
			detail))
	}

	return sb.String()
}

// RenderPrunedTable renders recently pruned snapshots, newest first as
// listed.
func RenderPrunedTable(pruned []*store.PrunedSnapshot) string {
	if len(pruned) == 0 {
		return "No snapshots pruned.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-8s %-15s %s\n",
		"Side", "Pruned", "Snapshot"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, p := range pruned {
		sb.WriteString(fmt.Sprintf("%-8s %-15s %s\n",
			p.Side,
			humanize.Time(p.PrunedAt),
			truncate(p.Path, 55)))
	}

	return sb.String()
}

// formatStatus returns a fixed-width, optionally colored status cell.
func formatStatus(status string) string {
	padded := fmt.Sprintf("%-10s", status)
	switch status {
	case store.StatusSucceeded:
		return colorize(colorGreen, padded)
	case store.StatusFailed:
		return colorize(colorRed, padded)
	case store.StatusRunning:
		return colorize(colorYellow, padded)
	default:
		return colorize(colorGray, padded)
	}
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
