package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"ravens/internal/diag"
	"ravens/internal/source"
)

type palette struct {
	err, warn, info, code, loc, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan, color.Bold),
		code: color.New(color.Bold),
		loc:  color.New(color.Faint),
		note: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.loc, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем Notes с отступом. Цвет включается опцией.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil {
		return
	}
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.loc.Sprint(location(fs, d.Primary, opts.PathMode, opts.BaseDir)),
			p.severity(d.Severity).Sprint(d.Severity.String()),
			p.code.Sprint(d.Code.ID()),
			d.Message,
		)
		if !opts.ShowNotes && d.Code != diag.ObsTimings {
			continue
		}
		for _, n := range d.Notes {
			if n.Span.Empty() {
				fmt.Fprintf(w, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
				continue
			}
			fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note:"),
				p.loc.Sprint(location(fs, n.Span, opts.PathMode, opts.BaseDir)), n.Msg)
		}
	}
}

// Summary prints "N error(s), M warning(s)" or nothing for a clean bag.
func Summary(w io.Writer, bag *diag.Bag, truncated int, useColor bool) {
	if !bag.HasWarnings() && truncated == 0 {
		return
	}
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	p := newPalette(useColor)
	line := fmt.Sprintf("%s, %s", plural(errs, "error"), plural(warns, "warning"))
	if truncated > 0 {
		line += fmt.Sprintf(" (%d more not shown)", truncated)
	}
	if errs > 0 {
		fmt.Fprintln(w, p.err.Sprint(line))
		return
	}
	fmt.Fprintln(w, p.warn.Sprint(line))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func location(fs *source.FileSet, sp source.Span, mode PathMode, base string) string {
	path := formatPath(fs.Path(sp.File), mode, base)
	if sp.Empty() {
		return path
	}
	return fmt.Sprintf("%s:%d:%d", path, sp.Line, sp.Col)
}
