package tui

import (
	"strings"
	"testing"

	"github.com/Zuo-Peng/tavern-chat/internal/search"
)

func TestFormatResultLine(t *testing.T) {
	r := search.Result{
		ChatKey:   "Seraphina/forest",
		FileLine:  2,
		UpdatedAt: "2024-06-05T15:46:00",
		Character: "Seraphina",
		Name:      "Seraphina",
		Summary:   "Tell me\nabout the forest",
		Snippet:   "The >>>forest<<< sleeps",
		Role:      "char",
	}
	lines := formatResultLine(r, 60, true)
	if len(lines) != linesPerItem {
		t.Fatalf("expected %d lines, got %d", linesPerItem, len(lines))
	}
	if !strings.Contains(lines[0], "06-05") || !strings.Contains(lines[0], "Tell me about the forest") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "Seraphina: The forest sleeps") {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestAdjustListScroll(t *testing.T) {
	m := &model{cursor: 7}
	m.adjustListScroll(3 * linesPerItem)
	if m.listOffset != 5 {
		t.Errorf("listOffset = %d, want 5", m.listOffset)
	}
	m.cursor = 2
	m.adjustListScroll(3 * linesPerItem)
	if m.listOffset != 2 {
		t.Errorf("listOffset = %d, want 2", m.listOffset)
	}
}

func TestPreviewCacheKey(t *testing.T) {
	if got := previewCacheKey("Aqua/lake", -1); got != "Aqua/lake:-1" {
		t.Errorf("previewCacheKey = %q", got)
	}
}

func TestNextRole(t *testing.T) {
	role := ""
	var seen []string
	for range roleCycle {
		role = nextRole(role)
		seen = append(seen, role)
	}
	if strings.Join(seen, ",") != "user,char,system," {
		t.Errorf("cycle = %v", seen)
	}
	if got := nextRole("bogus"); got != "" {
		t.Errorf("nextRole(bogus) = %q", got)
	}
}

func TestLayoutAndHitTest(t *testing.T) {
	m := model{width: 100, height: 30, listOffset: 1}
	l := m.layout()
	if l.listW != 36 || l.previewW != 56 || l.panelH != 24 {
		t.Fatalf("layout = %+v", l)
	}

	if region, item := m.hitTest(5, 2); region != regionList || item != 1 {
		t.Errorf("top of list = %v %d", region, item)
	}
	if region, item := m.hitTest(5, 2+linesPerItem); region != regionList || item != 2 {
		t.Errorf("second item = %v %d", region, item)
	}
	if region, _ := m.hitTest(50, 10); region != regionPreview {
		t.Errorf("preview = %v", region)
	}
	if region, _ := m.hitTest(5, 0); region != regionNone {
		t.Errorf("input row = %v", region)
	}
}
