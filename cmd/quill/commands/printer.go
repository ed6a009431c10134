package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/ashita-ai/quill/internal/model"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

func init() {
	// Progress goes to stderr, so color follows stderr rather than stdout,
	// which is often piped. NO_COLOR always wins.
	if os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(os.Stderr.Fd()) {
		color.NoColor = false
	}
}

// printError writes err with its machine-readable code when it has one.
func printError(w io.Writer, err error) {
	code := model.CodeOf(err)
	if code == model.ErrCodeInternalError {
		red.Fprintf(w, "✗ %s\n", err)
		return
	}
	red.Fprintf(w, "✗ [%s] ", code)
	fmt.Fprintln(w, model.MessageOf(err))
}

func printProgress(w io.Writer, p model.ProgressData) {
	cyan.Fprintf(w, "→ [%3d%%] ", p.Percent)
	fmt.Fprintln(w, p.Message)
}

func printSuccess(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ "+format+"\n", a...)
}

func printWarning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "⚠ "+format+"\n", a...)
}

func printDetail(w io.Writer, format string, a ...any) {
	faint.Fprintf(w, "  "+format+"\n", a...)
}
