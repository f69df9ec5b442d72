package diag

import (
	"fmt"
	"strings"

	"ravens/internal/source"
)

// FormatShort renders diagnostics one per line as
// "<SEV> <CODE> <path:line:col>: <message>", followed by indented notes when
// includeNotes is set. The bag is not reordered; call Sort first for stable
// output.
func FormatShort(bag *Bag, fs *source.FileSet, includeNotes bool) string {
	if bag.Len() == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range bag.Items() {
		fmt.Fprintf(&sb, "%s %s %s: %s\n", d.Severity, d.Code.ID(), fs.Format(d.Primary), d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  note %s: %s\n", fs.Format(n.Span), n.Msg)
		}
	}
	return sb.String()
}
