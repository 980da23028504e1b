// Package ui styles CLI output with ANSI 256-colour escapes.
package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorGood   = 114 // green
	colorWarn   = 179 // amber
	colorBad    = 167 // red
)

// Retention thresholds for RenderPercent.
const (
	goodPercent = 40.0
	warnPercent = 15.0
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return paint(colorAccent, s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return paint(colorMuted, s)
}

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string {
	return paint(colorCmd, s)
}

// RenderPercent formats a retention percentage with one decimal, coloured
// by band. A nil percentage renders as a muted dash.
func RenderPercent(p *float64) string {
	if p == nil {
		return RenderMuted("-")
	}
	s := fmt.Sprintf("%.1f%%", *p)
	switch {
	case *p >= goodPercent:
		return paint(colorGood, s)
	case *p >= warnPercent:
		return paint(colorWarn, s)
	}
	return paint(colorBad, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
