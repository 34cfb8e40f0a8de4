// Package statuscolor colors HTTP status codes and outcome statuses for
// terminal output.
package statuscolor

import (
	"fmt"
	"net/http"

	"github.com/fatih/color"

	"github.com/selimozcann/mainurlhunter/internal/model"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
)

func colorFor(status int) *color.Color {
	switch {
	case status == 0:
		return gray
	case status >= 300 && status < 400:
		return green
	case status == http.StatusOK:
		return yellow
	case status >= 400:
		return red
	default:
		return yellow
	}
}

// Sprint returns a colorized status code string (3xx green, 4xx/5xx red).
func Sprint(status int) string {
	if status == 0 {
		return gray.Sprint("—")
	}
	return colorFor(status).Sprint(status)
}

// WrapByStatus wraps text with the color of an HTTP status code.
func WrapByStatus(text string, status int) string {
	return colorFor(status).Sprint(text)
}

// Gray wraps the provided text in gray.
func Gray(text string) string {
	return gray.Sprint(text)
}

// Outcome colors an outcome status label.
func Outcome(s model.Status) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case model.StatusUpdated:
		return green.Sprint(label)
	case model.StatusSkipped:
		return yellow.Sprint(label)
	case model.StatusFailed:
		return red.Sprint(label)
	case model.StatusUnchanged:
		return cyan.Sprint(label)
	default:
		return label
	}
}
