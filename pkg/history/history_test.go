package history

import (
	"strings"
	"testing"
)

func TestDiffStats(t *testing.T) {
	tests := []struct {
		name      string
		before    string
		after     string
		additions int
		deletions int
	}{
		{"first write", "", "abc\n", 4, 0},
		{"append", "aaa", "aaabbb", 3, 0},
		{"truncate", "aaabbb", "aaa", 0, 3},
		{"no change", "same", "same", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			additions, deletions := DiffStats(tt.before, tt.after)
			if additions != tt.additions || deletions != tt.deletions {
				t.Errorf("DiffStats(%q, %q) = +%d/-%d, want +%d/-%d",
					tt.before, tt.after, additions, deletions, tt.additions, tt.deletions)
			}
		})
	}
}

func TestTrackerRecordAndRevisions(t *testing.T) {
	tr := NewTracker()

	first := tr.Record("index.html", "", "aaa", 1)
	if first.Additions != 3 || first.Deletions != 0 {
		t.Fatalf("first revision stats = +%d/-%d, want +3/-0", first.Additions, first.Deletions)
	}

	second := tr.Record("index.html", "aaa", "aaabbb", 2)
	if second.Summary() != "+3/-0" {
		t.Fatalf("Summary() = %q, want %q", second.Summary(), "+3/-0")
	}

	revs := tr.Revisions("index.html")
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	if revs[0].Step != 1 || revs[1].Step != 2 {
		t.Errorf("revision steps = %d, %d, want 1, 2", revs[0].Step, revs[1].Step)
	}
	if revs[1].Content != "aaabbb" {
		t.Errorf("latest content = %q, want %q", revs[1].Content, "aaabbb")
	}

	if revs := tr.Revisions("missing.css"); len(revs) != 0 {
		t.Errorf("expected no revisions for untracked file, got %d", len(revs))
	}
}

func TestTrackerFilesSorted(t *testing.T) {
	tr := NewTracker()
	tr.Record("style.css", "", "b{}", 1)
	tr.Record("index.html", "", "<p>", 1)
	tr.Record("script.js", "", ";", 2)

	files := tr.Files()
	want := []string{"index.html", "script.js", "style.css"}
	if len(files) != len(want) {
		t.Fatalf("Files() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("Files() = %v, want %v", files, want)
		}
	}
}

func TestGetDiffHeaderAndLines(t *testing.T) {
	out := GetDiff("index.html", "", "hello\n")

	if !strings.Contains(out, "index.html") {
		t.Errorf("diff output missing filename header:\n%s", out)
	}
	if !strings.Contains(out, "+++6") {
		t.Errorf("diff output missing addition count:\n%s", out)
	}
	if !strings.Contains(out, "+ hello") {
		t.Errorf("diff output missing inserted line:\n%s", out)
	}
	if strings.Contains(out, "---") {
		t.Errorf("diff output has deletion marker for a pure insert:\n%s", out)
	}
}

func TestGetDiffCollapsesLongContext(t *testing.T) {
	var b strings.Builder
	for _, l := range []string{"l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9", "l10"} {
		b.WriteString(l)
		b.WriteString("\n")
	}
	same := b.String()

	out := GetDiff("big.txt", same, same)
	if !strings.Contains(out, "...") {
		t.Errorf("long unchanged run was not collapsed:\n%s", out)
	}
	if strings.Contains(out, "l5") {
		t.Errorf("middle context line survived collapsing:\n%s", out)
	}
	if !strings.Contains(out, "l2") || !strings.Contains(out, "l9") {
		t.Errorf("edge context lines missing:\n%s", out)
	}
}
