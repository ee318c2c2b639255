package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔══════════════════════════════════════════╗
    ║   ___  _____  _____ _    ___             ║
    ║  | _ \| __\ \/ / __| |  / __|            ║
    ║  |  _/| _| >  <| _|| |__\__ \            ║
    ║  |_|  |___/_/\_\___|____|___/ scraper    ║
    ║                                          ║
    ║   stock photos, with credit where due    ║
    ╚══════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
	Bold    = colorize("\033[1m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// Console writes user-facing lines. Log records go through the logger;
// Console is for the progress and summary output a user reads.
type Console struct {
	out   io.Writer
	color bool
	quiet bool
}

// NewConsole creates a Console writing to out
func NewConsole(out io.Writer, color bool) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, color: color}
}

// SetQuiet suppresses everything except errors and the final summary
func (c *Console) SetQuiet(quiet bool) {
	c.quiet = quiet
}

// Quiet reports whether progress lines are suppressed
func (c *Console) Quiet() bool {
	return c.quiet
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

func (c *Console) paint(color func(string) string, text string) string {
	if !c.color {
		return text
	}
	return color(text)
}

// Printf writes a formatted line without color
func (c *Console) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

// PrintLogo prints the ASCII logo with color
func (c *Console) PrintLogo() {
	if c.quiet {
		return
	}
	fmt.Fprint(c.out, c.paint(Cyan, ASCIILogo))
}

// PrintError prints an error message in red
func (c *Console) PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(c.out, c.paint(Red, msg))
}

// PrintSuccess prints a success message in green
func (c *Console) PrintSuccess(msg string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, c.paint(Green, msg))
}

// PrintInfo prints a label and value
func (c *Console) PrintInfo(label string, value string) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "%s: %s\n", c.paint(Cyan, label), c.paint(Yellow, value))
}

// PrintWarning prints a warning message in yellow
func (c *Console) PrintWarning(msg string, args ...interface{}) {
	if c.quiet {
		return
	}
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(c.out, c.paint(Yellow, msg))
}

// PrintHighlight prints a highlighted message in magenta
func (c *Console) PrintHighlight(msg string) {
	fmt.Fprintln(c.out, c.paint(Magenta, msg))
}

// PrintDim prints a de-emphasised message
func (c *Console) PrintDim(msg string) {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, c.paint(Dim, msg))
}
