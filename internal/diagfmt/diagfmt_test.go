package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"ravens/internal/diag"
	"ravens/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	sp, err := fs.ParseLocation("/home/user/project/src/app.rv:12:5")
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.PlcInvalidBoundaryDirection, sp,
		"invalid boundary direction `db::query` → `ui::render`: server code cannot call client code").
		WithNote(sp, "call site"))
	bag.Add(diag.New(diag.SevWarning, diag.PlcDeadCode, source.Span{}, "`util::old` is unreachable"))
	return bag, fs
}

func TestPrettyPathModes(t *testing.T) {
	bag, fs := sampleBag(t)
	tests := []struct {
		name string
		opts PrettyOpts
		want string
	}{
		{"absolute", PrettyOpts{PathMode: PathModeAbsolute}, "/home/user/project/src/app.rv:12:5"},
		{"relative", PrettyOpts{PathMode: PathModeRelative, BaseDir: "/home/user/project"}, "src/app.rv:12:5: ERROR"},
		{"basename", PrettyOpts{PathMode: PathModeBasename}, "app.rv:12:5"},
		{"auto shortens long paths", PrettyOpts{PathMode: PathModeAuto}, "app.rv:12:5: ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, tt.opts)
			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Fatalf("output must contain %q:\n%s", tt.want, out)
			}
			if !strings.Contains(out, diag.PlcInvalidBoundaryDirection.ID()) || !strings.Contains(out, "WARNING") {
				t.Fatalf("missing severity or code:\n%s", out)
			}
			if strings.Contains(out, "note:") {
				t.Fatalf("notes printed without ShowNotes:\n%s", out)
			}
		})
	}
}

func TestPrettyNotesAndColor(t *testing.T) {
	bag, fs := sampleBag(t)
	var plain, colored bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{ShowNotes: true, PathMode: PathModeBasename})
	Pretty(&colored, bag, fs, PrettyOpts{ShowNotes: true, PathMode: PathModeBasename, Color: true})
	if !strings.Contains(plain.String(), "  note: app.rv:12:5: call site") {
		t.Fatalf("note missing:\n%s", plain.String())
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output has escapes:\n%q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escapes:\n%q", colored.String())
	}
}

func TestSummary(t *testing.T) {
	bag, _ := sampleBag(t)
	var buf bytes.Buffer
	Summary(&buf, bag, 3, false)
	if got := buf.String(); got != "1 error, 1 warning (3 more not shown)\n" {
		t.Fatalf("Summary = %q", got)
	}
	buf.Reset()
	Summary(&buf, diag.NewBag(0), 0, false)
	if buf.Len() != 0 {
		t.Fatalf("clean bag must print nothing, got %q", buf.String())
	}
	infos := diag.NewBag(0)
	infos.Add(diag.New(diag.SevInfo, diag.ObsCacheHit, source.Span{}, "served from memory cache"))
	Summary(&buf, infos, 0, false)
	if buf.Len() != 0 {
		t.Fatalf("info-only bag must print nothing, got %q", buf.String())
	}
}

func TestJSON(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeBasename, Max: 1}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || out.Truncated != 1 {
		t.Fatalf("count=%d truncated=%d", out.Count, out.Truncated)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != diag.PlcInvalidBoundaryDirection.ID() {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if d.Location != (LocationJSON{File: "app.rv", Line: 12, Col: 5}) {
		t.Fatalf("location %+v", d.Location)
	}
	if len(d.Notes) != 0 {
		t.Fatalf("notes must be omitted unless requested")
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]PathMode{"": PathModeAuto, "abs": PathModeAbsolute, "relative": PathModeRelative, "base": PathModeBasename} {
		got, ok := ParsePathMode(in)
		if !ok || got != want {
			t.Fatalf("ParsePathMode(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParsePathMode("weird"); ok {
		t.Fatalf("unknown mode accepted")
	}
}
