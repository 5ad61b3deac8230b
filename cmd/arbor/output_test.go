package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/arbor-db/arbor/internal/usecase"
)

func TestWrapString(t *testing.T) {
	if got := wrapString("short", 10); got != "short" {
		t.Fatalf("wrapString = %q", got)
	}
	if got := wrapString("abcdefgh", 3); got != "abc\ndef\ngh" {
		t.Fatalf("wrapString = %q", got)
	}
	// wide runes count double
	if got := wrapString("日本語", 4); got != "日本\n語" {
		t.Fatalf("wrapString = %q", got)
	}
}

func TestRenderFormats(t *testing.T) {
	v := map[string]int{"removed": 2}
	defer func(prev string) { opts.format = prev }(opts.format)

	for format, want := range map[string]string{
		formatJSON: "\"removed\": 2",
		formatYAML: "removed: 2",
	} {
		opts.format = format
		var buf bytes.Buffer
		if err := render(&buf, v, nil); err != nil {
			t.Fatalf("render %s: %v", format, err)
		}
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("render %s = %q", format, buf.String())
		}
	}

	opts.format = "xml"
	if err := render(&bytes.Buffer{}, v, nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestOutputOutline(t *testing.T) {
	nodes := []usecase.NodeView{
		{ID: 2, Name: "guide", Depth: 1},
		{ID: 3, Name: "intro", Depth: 2},
		{ID: 4, Name: "deep", Depth: 3},
		{ID: 5, Name: "usage", Depth: 2},
	}
	var buf bytes.Buffer
	outputOutline(&buf, nodes, true)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "guide (#2)") || !strings.Contains(lines[3], "usage (#5)") {
		t.Fatalf("unexpected outline:\n%s", buf.String())
	}
	// children render further right than their parent
	if strings.Index(lines[2], "deep") <= strings.Index(lines[1], "intro") {
		t.Fatalf("expected deeper indent:\n%s", buf.String())
	}
}

func TestCalculateColumnWidths(t *testing.T) {
	nodes := []usecase.NodeView{{Name: "a rather long node name", Path: "root/a rather long node name"}}

	wide := calculateColumnWidths(200, nodes, true)
	if wide.useShortDate || wide.name < len(nodes[0].Name) {
		t.Fatalf("unexpected wide widths: %#v", wide)
	}

	narrow := calculateColumnWidths(60, nodes, true)
	if !narrow.useShortDate || narrow.name < 10 || narrow.path < 10 {
		t.Fatalf("unexpected narrow widths: %#v", narrow)
	}
}
