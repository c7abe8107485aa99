package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// fencedBlockRegex matches a fenced segment whose opening tag is a filename
	// or a bare language token, e.g. ```index.html or ```css. The tag and the
	// trimmed body are captured.
	fencedBlockRegex = regexp.MustCompile("(?s)```([\\w.\\-]+)[ \\t\\r]*\\n(.*?)```")

	// fencedJSONRegex matches a fenced JSON object, with or without the json tag.
	fencedJSONRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

	// braceRegionRegex is the fallback for plans emitted without a fence: the
	// first brace region whose top level mentions a "steps" array.
	braceRegionRegex = regexp.MustCompile(`(?s)\{[^{}]*"steps"[^{}]*\[.*?\][^{}]*\}`)
)

// languageFilenames maps bare language tokens to the canonical filenames used
// for generated web apps. Unknown tokens fall back to <token>.txt.
var languageFilenames = map[string]string{
	"html":       "index.html",
	"htm":        "index.html",
	"css":        "style.css",
	"style":      "style.css",
	"js":         "script.js",
	"javascript": "script.js",
}

// Step is one unit of work in a generation plan.
type Step struct {
	ID          int      `json:"id"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	Files       []string `json:"files,omitempty"`
	DependsOn   []int    `json:"depends_on,omitempty"`
}

// Plan is the structured breakdown of a task, extracted from a model reply.
type Plan struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// ExtractPlan pulls a step plan out of free-form model output. A fenced JSON
// block is preferred since stray braces in prose are common; without one, the
// first brace region containing a "steps" key is tried. Malformed JSON or a
// missing steps array yields ok=false, never an error or a partial plan.
func ExtractPlan(text string) (*Plan, bool) {
	if m := fencedJSONRegex.FindStringSubmatch(text); m != nil {
		return parsePlanJSON(m[1])
	}
	if m := braceRegionRegex.FindString(text); m != "" {
		return parsePlanJSON(m)
	}
	return nil, false
}

func parsePlanJSON(raw string) (*Plan, bool) {
	// Steps is decoded in two stages so a present-but-empty array is
	// distinguishable from a missing key.
	var probe struct {
		Name  string          `json:"name"`
		Steps json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, false
	}
	if probe.Steps == nil {
		return nil, false
	}
	var steps []Step
	if err := json.Unmarshal(probe.Steps, &steps); err != nil {
		return nil, false
	}
	return &Plan{Name: probe.Name, Steps: steps}, true
}

// ExtractFiles scans model output for fenced segments and returns them keyed
// by filename. Tags containing a dot are taken as explicit filenames; bare
// language tokens are normalized via languageFilenames. Bodies are trimmed of
// surrounding whitespace and nothing else. No matches is a valid empty result.
func ExtractFiles(text string) map[string]string {
	files := make(map[string]string)
	for _, m := range fencedBlockRegex.FindAllStringSubmatch(text, -1) {
		filename := NormalizeTag(m[1])
		files[filename] = strings.TrimSpace(m[2])
	}
	return files
}

// NormalizeTag resolves a fence tag to a filename. Explicit filenames pass
// through unchanged.
func NormalizeTag(tag string) string {
	if strings.Contains(tag, ".") {
		return tag
	}
	if name, ok := languageFilenames[strings.ToLower(tag)]; ok {
		return name
	}
	return tag + ".txt"
}
