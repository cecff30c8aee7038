package ui

import (
	"strings"
	"testing"
)

func TestTableView(t *testing.T) {
	table := NewTable("Attack Path Analysis", "SESSION", "RISK")
	table.AddRow("Activity on svc_web", "High")

	view := table.View(PlainStyles())

	t.Logf("View:\n%q", view)

	if !strings.Contains(view, "Attack Path Analysis") {
		t.Error("View missing title")
	}
	if !strings.Contains(view, "SESSION") {
		t.Error("View missing header")
	}
	if !strings.Contains(view, "Activity on svc_web") {
		t.Error("View missing cell content")
	}
	if !strings.Contains(view, "|") {
		t.Error("View missing column separator")
	}
	if !strings.Contains(view, "----") {
		t.Error("View missing divider row")
	}
}

func TestTableEmptyRendersNothing(t *testing.T) {
	table := NewTable("Empty", "A", "B")
	if view := table.View(PlainStyles()); view != "" {
		t.Errorf("empty table rendered %q, want nothing", view)
	}
}

func TestTableRaggedRows(t *testing.T) {
	table := NewTable("", "A", "B", "C")
	table.AddRow("only-one")
	table.AddRow("x", "y", "z", "overflow")

	view := table.View(PlainStyles())

	if strings.Contains(view, "overflow") {
		t.Error("cells beyond the header count should be dropped")
	}
	if !strings.Contains(view, "only-one") {
		t.Error("short rows should still render")
	}
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if len(lines) != 4 {
		t.Errorf("got %d lines, want header + divider + 2 rows", len(lines))
	}
}

func TestTableColumnWidthTracksWidestCell(t *testing.T) {
	table := NewTable("", "ID", "NAME")
	table.AddRow("1", "a-much-longer-value")
	table.AddRow("2", "b")

	view := table.View(PlainStyles())
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")

	width := len(lines[0])
	for i, line := range lines {
		if len(line) != width {
			t.Errorf("line %d width %d, want %d: %q", i, len(line), width, line)
		}
	}
}
