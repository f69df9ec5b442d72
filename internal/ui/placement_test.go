package ui

import (
	"strings"
	"testing"

	"ravens/internal/partition"
	"ravens/internal/program"
)

func sampleOutput() *partition.Output {
	return &partition.Output{
		Program: "todo",
		Placements: []partition.DeclEntry{
			{ID: 1, Path: "Item", Kind: "type", Placement: partition.Shared},
			{ID: 2, Path: "store::save", Kind: "fn", Placement: partition.Server},
			{ID: 3, Path: "ui::list", Kind: "component", Placement: partition.Client},
			{ID: 4, Path: "util::old", Kind: "fn", Placement: partition.Shared, Dropped: true},
		},
		Stubs: []partition.RpcStub{{
			StableName: "store.save",
			Path:       "store::save",
			Callers:    []program.DeclID{3},
			Handler:    partition.HandlerDescriptor{Symbol: "handleStoreSave"},
			Proxy:      partition.ProxyDescriptor{Symbol: "storeSave"},
		}},
	}
}

func TestRenderPlacementsPlain(t *testing.T) {
	got := RenderPlacements(sampleOutput(), TableOpts{Width: 80})
	for _, want := range []string{
		"todo: 4 declarations",
		"store::save",
		"rpc, 1 caller(s)",
		"dropped",
		"store.save  storeSave -> handleStoreSave",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output must contain %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("plain table has escapes:\n%q", got)
	}
	// колонки выровнены: PLACEMENT начинается в одной позиции
	lines := strings.Split(got, "\n")
	col := -1
	for _, l := range lines {
		for _, side := range []string{"server", "client", "shared"} {
			if i := strings.Index(l, " "+side); i >= 0 && strings.HasPrefix(l, "  ") {
				if col >= 0 && i != col {
					t.Fatalf("misaligned placement column in:\n%s", got)
				}
				col = i
			}
		}
	}
}

func TestRenderPlacementsFilter(t *testing.T) {
	got := RenderPlacements(sampleOutput(), TableOpts{Filter: partition.Client})
	if !strings.Contains(got, "ui::list") || strings.Contains(got, "util::old") {
		t.Fatalf("filter not applied:\n%s", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"store::save", 20, "store::save"},
		{"store::save", 8, "store..."},
		{"日本語::関数", 7, "日本..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
