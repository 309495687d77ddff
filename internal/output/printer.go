// Package output formats command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode is the value of the --color flag.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	}
	return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
}

// ResolveColors reports whether output is colored. In auto mode NO_COLOR
// and TERM=dumb win over output.colors from the config file.
func ResolveColors(mode ColorMode, configColors bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("TERM") == "dumb" {
		return false
	}
	return configColors
}

type PrinterOptions struct {
	ColorMode    ColorMode
	ConfigColors bool
	Quiet        bool
	Out          io.Writer
	Err          io.Writer
}

// Printer writes status lines, headers and tables. Quiet mode silences
// everything except errors and JSON.
type Printer struct {
	out    io.Writer
	err    io.Writer
	colors bool
	quiet  bool
}

func NewPrinter(opts PrinterOptions) *Printer {
	p := &Printer{
		out:    opts.Out,
		err:    opts.Err,
		colors: ResolveColors(opts.ColorMode, opts.ConfigColors),
		quiet:  opts.Quiet,
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.err == nil {
		p.err = os.Stderr
	}
	return p
}

func (p *Printer) Out() io.Writer { return p.out }

// status is one kind of prefixed line.
type status struct {
	symbol string
	plain  string
	attr   color.Attribute
}

var (
	statusOK    = status{symbol: "✓ ", plain: "[OK] ", attr: color.FgGreen}
	statusError = status{symbol: "✗ ", plain: "[ERROR] ", attr: color.FgRed}
)

func (p *Printer) line(w io.Writer, s status, format string, args []any) {
	msg := fmt.Sprintf(format, args...)
	if !p.colors {
		fmt.Fprintln(w, s.plain+msg)
		return
	}
	color.New(s.attr).Fprintln(w, s.symbol+msg)
}

func (p *Printer) Success(format string, args ...any) {
	if !p.quiet {
		p.line(p.out, statusOK, format, args)
	}
}

func (p *Printer) Error(format string, args ...any) {
	p.line(p.err, statusError, format, args)
}

// Info is an unprefixed highlighted line.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.colors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Print(format string, args ...any) {
	if !p.quiet {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

// Header prints title underlined to its rune width.
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	n := len([]rune(title))
	if p.colors {
		color.New(color.Bold).Fprintf(p.out, "\n%s\n", title)
		fmt.Fprintln(p.out, p.Dim(strings.Repeat("─", n)))
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", n))
}

// JSON writes v as indented JSON, even in quiet mode.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) Bold(text string) string { return p.style(text, color.Bold) }
func (p *Printer) Dim(text string) string  { return p.style(text, color.Faint) }

func (p *Printer) style(text string, attr color.Attribute) string {
	if !p.colors {
		return text
	}
	return color.New(attr).Sprint(text)
}
