package main

import (
	"fmt"
	"io"

	"ravens/internal/driver"
)

func printTimings(out io.Writer, o *driver.Outcome) {
	if out == nil || o == nil {
		return
	}
	for _, p := range o.Timings.Phases {
		line := fmt.Sprintf("%-10s %7.1f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  (" + p.Note + ")"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%-10s %7.1f ms\n", "total", o.Timings.TotalMS)
}
