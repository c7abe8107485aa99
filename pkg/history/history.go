// Package history keeps per-file revision logs for a consensus run.
package history

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Color constants for better readability
const (
	RedColor             = "\x1b[31m"
	GreenColor           = "\x1b[32m"
	YellowColor          = "\x1b[33m"
	BoldStyle            = "\x1b[1m"
	ResetColor           = "\x1b[0m"
	NumberOfContextLines = 3 // Number of context lines to show around changes
)

// Revision records one write of a generated file.
type Revision struct {
	Filename  string    `json:"filename"`
	Step      int       `json:"step"`
	Content   string    `json:"content"`
	Additions int       `json:"additions"`
	Deletions int       `json:"deletions"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary renders the short change note used in transcript and log lines.
func (r Revision) Summary() string {
	return fmt.Sprintf("+%d/-%d", r.Additions, r.Deletions)
}

// Tracker accumulates revisions for the files one run produces. It is safe
// for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	revisions map[string][]Revision
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{revisions: make(map[string][]Revision)}
}

// Record appends a revision of filename generated by the given step and
// returns it. Addition and deletion counts are character based, computed
// against the previous content (empty for a first write).
func (t *Tracker) Record(filename, before, after string, step int) Revision {
	additions, deletions := DiffStats(before, after)
	rev := Revision{
		Filename:  filename,
		Step:      step,
		Content:   after,
		Additions: additions,
		Deletions: deletions,
		Timestamp: time.Now(),
	}
	t.mu.Lock()
	t.revisions[filename] = append(t.revisions[filename], rev)
	t.mu.Unlock()
	return rev
}

// Revisions returns the recorded revisions for filename, oldest first.
func (t *Tracker) Revisions(filename string) []Revision {
	t.mu.Lock()
	defer t.mu.Unlock()
	revs := t.revisions[filename]
	out := make([]Revision, len(revs))
	copy(out, revs)
	return out
}

// Files returns every tracked filename in sorted order.
func (t *Tracker) Files() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.revisions))
	for name := range t.revisions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DiffStats counts inserted and deleted characters between two versions.
func DiffStats(before, after string) (additions, deletions int) {
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(before, after, true) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deletions += len(d.Text)
		}
	}
	return
}

// GetDiff renders a colored line diff between two versions of a file,
// prefixed by a stats header. Long unchanged runs are collapsed.
func GetDiff(filename, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lineText := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineText)

	var result strings.Builder
	result.WriteString(statsHeader(filename, before, after))

	for _, d := range diffs {
		lines := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				result.WriteString(fmt.Sprintf("%s+ %s%s\n", GreenColor, line, ResetColor))
			}
		case diffmatchpatch.DiffDelete:
			for _, line := range lines {
				result.WriteString(fmt.Sprintf("%s- %s%s\n", RedColor, line, ResetColor))
			}
		default:
			for _, line := range collapseContext(lines) {
				result.WriteString(fmt.Sprintf("  %s\n", line))
			}
		}
	}
	return result.String()
}

// PrintDiff writes the colored diff for a file to stdout.
func PrintDiff(filename, before, after string) {
	diff := GetDiff(filename, before, after)
	if diff == "" {
		fmt.Print("No changes detected.")
	}
	fmt.Print(diff)
}

func statsHeader(filename, before, after string) string {
	var result strings.Builder
	additions, deletions := DiffStats(before, after)
	result.WriteString(fmt.Sprintf("%s%s%s%s ", BoldStyle, YellowColor, filename, ResetColor))
	if additions > 0 {
		result.WriteString(fmt.Sprintf("%s%s+++%d%s ", BoldStyle, GreenColor, additions, ResetColor))
	}
	if deletions > 0 {
		result.WriteString(fmt.Sprintf("%s%s---%d%s", BoldStyle, RedColor, deletions, ResetColor))
	}
	result.WriteString("\n")
	return result.String()
}

func splitDiffLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// collapseContext keeps the leading and trailing context lines of an
// unchanged run and replaces the middle with an ellipsis marker.
func collapseContext(lines []string) []string {
	if len(lines) <= 2*NumberOfContextLines+1 {
		return lines
	}
	out := make([]string, 0, 2*NumberOfContextLines+1)
	out = append(out, lines[:NumberOfContextLines]...)
	out = append(out, "...")
	out = append(out, lines[len(lines)-NumberOfContextLines:]...)
	return out
}
