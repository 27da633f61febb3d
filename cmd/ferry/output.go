package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// colorizeState tints the migration and thumbnail lifecycle states.
func colorizeState(state string, colorize bool) string {
	if !colorize {
		return state
	}
	var color string
	switch state {
	case "completed", "ready":
		color = ansiGreen
	case "pending", "absent", "generating", "downloading", "uploading":
		color = ansiYellow
	case "failed":
		color = ansiRed
	default:
		return state
	}
	return color + state + ansiReset
}

func printJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
