package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the arbor ASCII art banner with the version underneath.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	// Greens fading into bark
	lines := []struct{ text, color string }{
		{"    _         _            ", "#4ade80"},
		{"   /_\\  _ _ _| |__  ___ _ _", "#22c55e"},
		{"  / _ \\| '_| '_ \\/ _ \\ '_|", "#16a34a"},
		{" /_/ \\_\\_| |_.__/\\___/_|  ", "#a16207"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  "+version).Faint())
	fmt.Fprintln(w)
}
