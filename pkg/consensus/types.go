package consensus

import (
	"sort"
	"time"

	"github.com/alantheprice/council/pkg/parser"
)

// Phase is one state of the orchestration pipeline. A failed run keeps the
// phase it failed in; the terminal failure itself is carried by Status.
type Phase string

const (
	PhasePlanning Phase = "planning"
	PhaseCoding   Phase = "coding"
	PhaseTesting  Phase = "testing"
	PhaseDone     Phase = "done"
)

// Status describes run progress. Transitions are monotonic: running moves to
// exactly one of completed or failed, never back.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// MessageKind tags a transcript entry.
type MessageKind string

const (
	KindSystem       MessageKind = "system"
	KindDiscussion   MessageKind = "discussion"
	KindProposal     MessageKind = "proposal"
	KindReview       MessageKind = "review"
	KindAgreement    MessageKind = "agreement"
	KindDisagreement MessageKind = "disagreement"
	KindError        MessageKind = "error"
	KindCode         MessageKind = "code"
)

// Message is one transcript entry. Entries are append-only and never mutated
// after creation.
type Message struct {
	Agent     string      `json:"agent"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// TestResults records the verification phase outcome. Passed is true only
// when every participating model's verdict carried the pass signal.
type TestResults struct {
	Passed   bool              `json:"passed"`
	Verdicts map[string]string `json:"verdicts,omitempty"`
}

// Session is the full record of one orchestration run. It is owned by the run
// driving it; everyone else sees snapshots through a Store.
type Session struct {
	ID         string            `json:"id"`
	Task       string            `json:"task"`
	Phase      Phase             `json:"phase"`
	Status     Status            `json:"status"`
	Transcript []Message         `json:"messages"`
	Files      map[string]string `json:"files"`
	FileOrder  []string          `json:"file_order,omitempty"`
	Plan       *parser.Plan      `json:"plan,omitempty"`
	TestResult *TestResults      `json:"test_results,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewSession returns a fresh running session in the planning phase.
func NewSession(id, task string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Task:      task,
		Phase:     PhasePlanning,
		Status:    StatusRunning,
		Files:     make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a transcript entry.
func (s *Session) AddMessage(agent, content string, kind MessageKind) Message {
	msg := Message{Agent: agent, Content: content, Kind: kind, Timestamp: time.Now()}
	s.Transcript = append(s.Transcript, msg)
	s.UpdatedAt = msg.Timestamp
	return msg
}

// MergeFiles folds extracted files into the session. File content is always
// the complete file; a filename seen again replaces its earlier content and
// keeps its original position in FileOrder.
func (s *Session) MergeFiles(files map[string]string) {
	for _, name := range sortedKeys(files) {
		if _, seen := s.Files[name]; !seen {
			s.FileOrder = append(s.FileOrder, name)
		}
		s.Files[name] = files[name]
	}
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (s *Session) Clone() *Session {
	out := *s
	out.Transcript = append([]Message(nil), s.Transcript...)
	out.FileOrder = append([]string(nil), s.FileOrder...)
	out.Files = make(map[string]string, len(s.Files))
	for k, v := range s.Files {
		out.Files[k] = v
	}
	if s.Plan != nil {
		plan := *s.Plan
		plan.Steps = append([]parser.Step(nil), s.Plan.Steps...)
		out.Plan = &plan
	}
	if s.TestResult != nil {
		tr := *s.TestResult
		tr.Verdicts = make(map[string]string, len(s.TestResult.Verdicts))
		for k, v := range s.TestResult.Verdicts {
			tr.Verdicts[k] = v
		}
		out.TestResult = &tr
	}
	return &out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
