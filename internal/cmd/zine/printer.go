package zine

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	stepColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

// step prints one progress line of a multi-step command.
func step(w io.Writer, format string, args ...any) {
	stepColor.Fprintf(w, "→ %s\n", fmt.Sprintf(format, args...))
}

// success prints the closing line of a command that worked.
func success(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// warn prints a non-fatal problem.
func warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "! %s\n", fmt.Sprintf(format, args...))
}
