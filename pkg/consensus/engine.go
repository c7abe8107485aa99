package consensus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alantheprice/council/pkg/events"
	"github.com/alantheprice/council/pkg/history"
	"github.com/alantheprice/council/pkg/llm"
	"github.com/alantheprice/council/pkg/prompts"
	"github.com/alantheprice/council/pkg/utils"
)

// Invoker is the slice of the model client the engine needs. *llm.Invoker
// satisfies it; tests substitute a scripted fake.
type Invoker interface {
	Invoke(ctx context.Context, model string, messages []prompts.Message, opts llm.Options) (*llm.ModelCallResult, error)
	InvokeWithImage(ctx context.Context, model, prompt, imagePath string, opts llm.Options) (*llm.ModelCallResult, error)
}

// Timeouts bounds each kind of model call the pipeline makes. Values pass
// through llm.ClampTimeout at call time.
type Timeouts struct {
	Proposal time.Duration
	Review   time.Duration
	Plan     time.Duration
	Coding   time.Duration
	Testing  time.Duration
	Visual   time.Duration
}

// DefaultTimeouts returns the per-call deadlines used when the caller does
// not override them. Coding gets the longest budget since generation
// responses are the largest.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Proposal: 60 * time.Second,
		Review:   120 * time.Second,
		Plan:     120 * time.Second,
		Coding:   180 * time.Second,
		Testing:  60 * time.Second,
		Visual:   120 * time.Second,
	}
}

// defaultMaxTokens caps plan and code generation responses.
const defaultMaxTokens = 2000

// RunOptions tunes a single consensus run.
type RunOptions struct {
	// APIKey overrides the invoker's default key for every call in this run.
	APIKey string
	// Extended enables the designer and visual QA roles.
	Extended bool
	// ScreenshotRef is a path or URL to a rendering of the generated app.
	// Visual QA only runs when it is set.
	ScreenshotRef string
	// Roles overrides the assignment derived from the model list.
	Roles Roles
	// MaxTokens caps generation calls; 0 selects the default.
	MaxTokens int
}

// Engine drives consensus sessions. One engine serves many concurrent runs;
// per-run state lives in the run struct.
type Engine struct {
	invoker  Invoker
	store    Store
	bus      *events.EventBus
	logger   *utils.Logger
	Timeouts Timeouts
}

// NewEngine wires an engine. bus may be nil when no UI surface is attached.
func NewEngine(invoker Invoker, store Store, bus *events.EventBus) *Engine {
	return &Engine{
		invoker:  invoker,
		store:    store,
		bus:      bus,
		logger:   utils.GetLogger(true),
		Timeouts: DefaultTimeouts(),
	}
}

// Run executes a full consensus session synchronously and returns the
// terminal session. The returned error covers setup problems only; pipeline
// failures are reported through the session's status and error fields.
func (e *Engine) Run(ctx context.Context, task string, models []string, opts RunOptions) (*Session, error) {
	r, err := e.newRun(task, models, opts)
	if err != nil {
		return nil, err
	}
	r.drive(ctx)
	return r.sess.Clone(), nil
}

// Start launches a session in the background and returns its id. Progress is
// observable through the store and the event bus.
func (e *Engine) Start(ctx context.Context, task string, models []string, opts RunOptions) (string, error) {
	r, err := e.newRun(task, models, opts)
	if err != nil {
		return "", err
	}
	go r.drive(ctx)
	return r.sess.ID, nil
}

// Session fetches a snapshot of a session by id.
func (e *Engine) Session(id string) (*Session, error) {
	return e.store.Get(id)
}

func (e *Engine) newRun(task string, models []string, opts RunOptions) (*run, error) {
	if task == "" {
		return nil, &ValidationError{Msg: "task description is required"}
	}

	roles := opts.Roles
	if roles == nil {
		var err error
		roles, err = RolesFromModels(models, opts.Extended)
		if err != nil {
			return nil, err
		}
	}
	if err := roles.Validate(); err != nil {
		return nil, err
	}

	sess := NewSession(uuid.NewString(), task)
	if err := e.store.Create(sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	r := &run{
		engine:        e,
		sess:          sess,
		roles:         roles,
		opts:          opts,
		tracker:       history.NewTracker(),
		architectName: AgentName(RolePlanner, roles.Model(RolePlanner)),
	}
	if reviewer := roles.Model(RoleReviewer); reviewer != "" {
		r.reviewerName = AgentName(RoleReviewer, reviewer)
	}
	if coder := roles.Model(RoleCoder); coder == roles.Model(RolePlanner) {
		// One model wearing both hats keeps a single transcript identity.
		r.coderName = r.architectName
	} else {
		r.coderName = AgentName(RoleCoder, roles.Model(RoleCoder))
	}
	return r, nil
}

// run holds the state of one in-flight consensus session. It owns its
// Session value; the store only ever sees clones.
type run struct {
	engine        *Engine
	sess          *Session
	roles         Roles
	opts          RunOptions
	tracker       *history.Tracker
	architectName string
	reviewerName  string
	coderName     string

	// designRef carries the designer's image reference into coding calls.
	designRef string
}

// drive walks the pipeline to a terminal status. Every transcript append and
// phase change is synced to the store before the next model call starts.
func (r *run) drive(ctx context.Context) {
	e := r.engine

	e.logger.LogProcessStep(fmt.Sprintf("🚀 Consensus session %s: %s", r.sess.ID, utils.TruncateString(r.sess.Task, 80)))
	r.publish(events.EventTypeSessionStarted,
		events.SessionStartedEvent(r.sess.ID, r.sess.Task, r.roles.ParticipatingModels()))

	if r.reviewerName != "" {
		r.say("System", fmt.Sprintf("👋 Starting consensus session with %s and %s", r.architectName, r.reviewerName), KindSystem)
	} else {
		r.say("System", fmt.Sprintf("👋 Starting consensus session with %s", r.architectName), KindSystem)
	}

	r.say("System", "📝 Phase 1: Planning & Discussion", KindSystem)
	plan, err := r.planningPhase(ctx)
	if err != nil {
		r.fail(err)
		return
	}

	r.advancePhase(PhaseCoding)
	r.say("System", fmt.Sprintf("⚙️ Phase 2: Implementation (%d steps)", len(plan.Steps)), KindSystem)

	if r.opts.Extended {
		r.designerStep(ctx)
	}

	if err := r.codingPhase(ctx, plan); err != nil {
		r.fail(err)
		return
	}

	if r.opts.Extended {
		r.eyesStep(ctx)
	}

	r.advancePhase(PhaseTesting)
	r.say("System", "✅ Phase 3: Testing & Verification", KindSystem)
	r.testingPhase(ctx)

	r.advancePhase(PhaseDone)
	r.sess.Status = StatusCompleted
	r.say("System", "✨ All phases completed!", KindAgreement)

	passed := r.sess.TestResult != nil && r.sess.TestResult.Passed
	e.logger.LogProcessStep(fmt.Sprintf("🏁 Session %s completed with %d file(s)", r.sess.ID, len(r.sess.Files)))
	r.publish(events.EventTypeSessionCompleted,
		events.SessionCompletedEvent(r.sess.ID, len(r.sess.Files), passed))
}

// fail marks the session failed in whatever phase it currently is. The
// phase-specific transcript message has already been appended by the caller.
func (r *run) fail(err error) {
	r.sess.Error = err.Error()
	r.sess.Status = StatusFailed
	r.sync()
	r.engine.logger.LogError(fmt.Errorf("session %s failed during %s: %w", r.sess.ID, r.sess.Phase, err))
	r.publish(events.EventTypeSessionFailed,
		events.SessionFailedEvent(r.sess.ID, string(r.sess.Phase), r.sess.Error))
}

// say appends a transcript message, persists it and fans it out.
func (r *run) say(agent, content string, kind MessageKind) {
	r.sess.AddMessage(agent, content, kind)
	r.sync()
	r.publish(events.EventTypeSessionMessage,
		events.SessionMessageEvent(r.sess.ID, agent, content, string(kind)))
}

func (r *run) advancePhase(to Phase) {
	if err := ValidatePhaseTransition(r.sess.Phase, to); err != nil {
		r.engine.logger.LogError(err)
		return
	}
	r.sess.Phase = to
	r.sync()
	r.publish(events.EventTypePhaseChanged, events.PhaseChangedEvent(r.sess.ID, string(to)))
}

func (r *run) sync() {
	if err := r.engine.store.Update(r.sess); err != nil {
		r.engine.logger.LogError(fmt.Errorf("session %s store update: %w", r.sess.ID, err))
	}
}

func (r *run) publish(eventType string, data any) {
	if r.engine.bus != nil {
		r.engine.bus.Publish(eventType, data)
	}
}

// sayCallFailure appends the transcript entry for a failed model call,
// distinguishing timeouts so the UI can suggest the model may be slow.
func (r *run) sayCallFailure(agent string, err error) {
	if llm.IsTimeout(err) {
		r.say("System", fmt.Sprintf("⏱️ %s timed out. Model might be unavailable or slow.", agent), KindError)
		return
	}
	r.say("System", fmt.Sprintf("❌ %s error: %v", agent, err), KindError)
}

func (r *run) callOptions(timeout time.Duration) llm.Options {
	return llm.Options{APIKey: r.opts.APIKey, Timeout: timeout}
}

func (r *run) generationOptions(timeout time.Duration) llm.Options {
	opts := r.callOptions(timeout)
	if r.opts.MaxTokens > 0 {
		opts.MaxTokens = r.opts.MaxTokens
	} else {
		opts.MaxTokens = defaultMaxTokens
	}
	return opts
}

// errPlanExtraction is the terminal reason when no plan can be parsed out of
// the architect's response.
var errPlanExtraction = errors.New("plan extraction failed")
