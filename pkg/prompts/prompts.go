package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// Message represents a single message in a chat-like conversation with the LLM.
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentPart for multimodal
}

// ContentPart represents a part of multimodal content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`                // "text" or "image_url"
	Text     string    `json:"text,omitempty"`      // For text content
	ImageURL *ImageURL `json:"image_url,omitempty"` // For image content
}

// ImageURL represents an image URL with optional detail level
type ImageURL struct {
	URL    string `json:"url"`              // base64 encoded image or URL
	Detail string `json:"detail,omitempty"` // "low", "high", or "auto"
}

// Response signal tokens. The templates below instruct models to emit these and
// the consensus engine matches them as plain substrings. Both halves must agree,
// so they are defined once here.
const (
	ApprovalSignal = "APPROVED"
	PassSignal     = "PASS"
	IssuesSignal   = "issues found"
)

// --- Consensus role templates ---
//
// Each builder is a pure function of the task text and the accumulated outputs
// of earlier phases. The instruction shapes are load-bearing: the plan request
// mandates the JSON form ExtractPlan parses, and the coder templates mandate
// the fenced-filename form ExtractFiles parses.

// BuildArchitectProposalMessages asks the architect for an initial technical
// approach, before any other agent has spoken.
func BuildArchitectProposalMessages(architectName, reviewerName, task string) []Message {
	prompt := fmt.Sprintf(`You are %s, the Lead Architect in a team of AI agents.
You are working with %s.

USER REQUEST: %s

Your task:
1. Analyze the request
2. Propose a technical approach
3. Suggest technology stack
4. Outline key features

Be concise (3-5 sentences). You will discuss this with %s next.`, architectName, reviewerName, task, reviewerName)
	return []Message{{Role: "user", Content: prompt}}
}

// BuildReviewerResponseMessages threads the architect's proposal into the
// conversation as an assistant turn and asks the reviewer to respond to it.
func BuildReviewerResponseMessages(architectName, reviewerName, task, proposal string) []Message {
	architectMsgs := BuildArchitectProposalMessages(architectName, reviewerName, task)
	prompt := fmt.Sprintf(`You are %s, the Senior Reviewer.
You are working with %s.

%s proposed:
%s

Your task:
1. Review the proposal
2. Add important considerations (security, testing, etc.)
3. Suggest improvements or agree

Be concise (3-5 sentences). Be constructive.`, reviewerName, architectName, architectName, proposal)
	return append(architectMsgs,
		Message{Role: "assistant", Content: proposal},
		Message{Role: "user", Content: prompt},
	)
}

// BuildPlanRequestMessages asks the architect to distill the discussion into a
// machine-readable step plan. The JSON example is the exact shape the plan
// extractor accepts; models that wrap it in a fenced block are fine too.
func BuildPlanRequestMessages(architectName, reviewerName, task, proposal, review string) []Message {
	reviewerMsgs := BuildReviewerResponseMessages(architectName, reviewerName, task, proposal)
	prompt := fmt.Sprintf(`Based on the discussion between %s and %s:

%s: %s

%s: %s

Create a DETAILED step-by-step plan as JSON:

{
  "name": "Project Name",
  "steps": [
    {
      "id": 1,
      "description": "Create index.html with basic structure",
      "type": "frontend",
      "files": ["index.html"]
    },
    {
      "id": 2,
      "description": "Add CSS styling",
      "type": "frontend",
      "files": ["style.css"]
    }
  ]
}

Return ONLY valid JSON, no other text. Keep it simple (3-5 steps max).`,
		architectName, reviewerName, architectName, proposal, reviewerName, review)
	return append(reviewerMsgs,
		Message{Role: "assistant", Content: review},
		Message{Role: "user", Content: prompt},
	)
}

// BuildCoderStepMessages asks the coder to implement one plan step. Every file
// must come back as a fenced block tagged with its filename so the file
// extractor can pick it up.
func BuildCoderStepMessages(description string) []Message {
	prompt := fmt.Sprintf(`Implement: %s

Create simple, working code. Format:

`+"```"+`filename.ext
<code>
`+"```"+`

For example:
`+"```"+`index.html
<!DOCTYPE html>
<html>
<body>
  <h1>Hello</h1>
</body>
</html>
`+"```"+`

Keep it minimal and functional.`, description)
	return []Message{{Role: "user", Content: prompt}}
}

// BuildCoderStepWithReferenceMessages is the variant used when a designer
// produced a visual reference. The image itself is attached to the returned
// message by the caller; the text only instructs the coder to match it.
func BuildCoderStepWithReferenceMessages(description string) []Message {
	prompt := fmt.Sprintf(`Implement: %s

A visual reference image is attached. Match its layout, colors and proportions
as closely as plain HTML/CSS/JS allows.

Create simple, working code. Format:

`+"```"+`filename.ext
<code>
`+"```"+`

Keep it minimal and functional.`, description)
	return []Message{{Role: "user", Content: prompt}}
}

// BuildStepReviewMessages asks the reviewer to judge one coding step's output.
// Approval is signalled by the literal token; anything else counts as
// disapproval.
func BuildStepReviewMessages(reviewerName, description string, files map[string]string) []Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are %s, reviewing the implementation of: %s

Generated files:
`, reviewerName, description)
	for _, name := range sortedFilenames(files) {
		fmt.Fprintf(&sb, "\n```%s\n%s\n```\n", name, files[name])
	}
	fmt.Fprintf(&sb, `
If the code correctly implements the step, reply with the single word %s.
Otherwise describe what is wrong, briefly.`, ApprovalSignal)
	return []Message{{Role: "user", Content: sb.String()}}
}

// BuildDesignerMessages asks the designer role for a visual reference before
// coding starts.
func BuildDesignerMessages(designerName, task string) []Message {
	prompt := fmt.Sprintf(`You are %s, the UI Designer.

USER REQUEST: %s

Describe the visual design for this app: layout, color palette, typography and
spacing, in a form a frontend developer can implement directly. If you can
produce an image, produce one; otherwise a precise textual mockup is fine.

Be concise.`, designerName, task)
	return []Message{{Role: "user", Content: prompt}}
}

// EyesPrompt asks the visual QA role to compare a rendering of the generated
// app against the task. The screenshot is attached by the caller, so this
// returns the bare prompt text. The "issues found" phrase is matched verbatim
// (case-insensitively) to decide whether a corrective pass runs.
func EyesPrompt(task string, filenames []string) string {
	return fmt.Sprintf(`You are the visual QA reviewer. A screenshot of the generated app is attached.

The app was built for: %s
Files: %s

Compare the screenshot against the request. If anything is visually wrong
(layout, overlap, missing elements, broken proportions), start your reply with
"Issues found:" and list them. If it looks right, reply "Looks good."`,
		task, strings.Join(filenames, ", "))
}

// BuildDebuggerMessages asks for a corrective pass over already generated
// files, given reviewer or visual QA feedback. Used for the single bounded
// fix-up call; the response format is the same fenced-filename shape the file
// extractor parses.
func BuildDebuggerMessages(feedback string, files map[string]string) []Message {
	var sb strings.Builder
	sb.WriteString("The following issues were reported:\n\n")
	sb.WriteString(feedback)
	sb.WriteString("\n\nCurrent files:\n")
	for _, name := range sortedFilenames(files) {
		fmt.Fprintf(&sb, "\n```%s\n%s\n```\n", name, files[name])
	}
	sb.WriteString(`
Fix the reported issues. Return ONLY the corrected files, each as a fenced
block tagged with its exact filename:

` + "```" + `filename.ext
<complete corrected file>
` + "```" + `

Return complete files, never fragments.`)
	return []Message{{Role: "user", Content: sb.String()}}
}

// BuildTesterMessages asks a participating model to verify the final file set
// against the plan. A verdict containing the pass token (any casing) counts as
// a pass.
func BuildTesterMessages(planName string, filenames []string) []Message {
	prompt := fmt.Sprintf(`You are verifying the implementation of "%s".

Generated files: %s

Check that the file set plausibly implements the plan: entry page present,
scripts and styles referenced correctly, no obviously missing piece.

Reply with %s if the implementation looks complete, or FAIL followed by what is
missing.`, planName, strings.Join(filenames, ", "), PassSignal)
	return []Message{{Role: "user", Content: prompt}}
}

func sortedFilenames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
