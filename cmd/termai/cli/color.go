package cli

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	accessibleModeEnabled = func() bool { return os.Getenv("ACCESSIBLE") != "" }

	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

func printSuccess(w io.Writer, format string, args ...any) {
	_, _ = successColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func printError(w io.Writer, format string, args ...any) {
	_, _ = errorColor.Fprintf(w, "✕ "+format+"\n", args...)
}

func printDim(w io.Writer, format string, args ...any) {
	_, _ = dimColor.Fprintf(w, format+"\n", args...)
}
