package ui

import (
	"strings"
	"testing"
)

func TestPlainStylesPassTextThrough(t *testing.T) {
	s := PlainStyles()
	for _, text := range []string{"FORESIGHT", "Ledger: VERIFIED", "why now"} {
		if got := s.Error.Render(text); got != text {
			t.Errorf("plain style altered %q into %q", text, got)
		}
	}
}

func TestSelectStyles(t *testing.T) {
	plain := SelectStyles(false)
	if got := plain.Warning.Render("pending"); got != "pending" {
		t.Errorf("SelectStyles(false) produced styled text %q", got)
	}

	colored := SelectStyles(true)
	if got := colored.Warning.Render("pending"); !strings.Contains(got, "pending") {
		t.Errorf("SelectStyles(true) lost the text: %q", got)
	}
}

func TestRiskStyleCoversAllLevels(t *testing.T) {
	s := PlainStyles()
	for _, level := range []string{"Critical", "High", "Medium", "Low", "Informational", ""} {
		if got := s.RiskStyle(level).Render(level); got != level {
			t.Errorf("RiskStyle(%q) altered plain text into %q", level, got)
		}
	}
}

func TestRenderDivider(t *testing.T) {
	s := PlainStyles()
	if got := s.RenderDivider(5); got != "-----" {
		t.Errorf("RenderDivider(5) = %q", got)
	}
	if got := s.RenderDivider(0); got != strings.Repeat("-", 40) {
		t.Errorf("RenderDivider(0) should fall back to the default width, got %q", got)
	}
}
