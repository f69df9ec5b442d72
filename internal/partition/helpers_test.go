package partition

import (
	"context"
	"strings"
	"testing"

	"ravens/internal/diag"
	"ravens/internal/program"
	"ravens/internal/project"
)

func mustProgram(t *testing.T, src string) *program.Program {
	t.Helper()
	prog, err := program.Decode([]byte(src), program.FormatYAML)
	if err != nil {
		if de, ok := program.IsDocError(err); ok {
			t.Fatalf("decode program:\n%s", diag.FormatShort(de.Bag, de.Files, true))
		}
		t.Fatalf("decode program: %v", err)
	}
	return prog
}

func mustRun(t *testing.T, prog *program.Program, opts Options) *Result {
	t.Helper()
	if opts.DeadCode == "" {
		opts.DeadCode = project.DeadCodeShared
	}
	res, err := Run(context.Background(), prog, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func placementOfPath(t *testing.T, prog *program.Program, res *Result, path string) Placement {
	t.Helper()
	return res.Placements.Get(prog.MustLookup(path))
}

func findDiag(res *Result, code diag.Code) (diag.Diagnostic, bool) {
	for _, d := range res.Bag.Items() {
		if d.Code == code {
			return d, true
		}
	}
	return diag.Diagnostic{}, false
}

func dumpDiags(res *Result, prog *program.Program) string {
	return diag.FormatShort(res.Bag, prog.Files, true)
}

func paths(prog *program.Program, ids []program.DeclID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = prog.Path(id)
	}
	return out
}

func notesText(d diag.Diagnostic) string {
	var sb strings.Builder
	for _, n := range d.Notes {
		sb.WriteString(n.Msg)
		sb.WriteString("\n")
	}
	return sb.String()
}
