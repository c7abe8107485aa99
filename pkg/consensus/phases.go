package consensus

import (
	"context"
	"fmt"
	"strings"

	"github.com/alantheprice/council/pkg/events"
	"github.com/alantheprice/council/pkg/llm"
	"github.com/alantheprice/council/pkg/parser"
	"github.com/alantheprice/council/pkg/prompts"
	"github.com/alantheprice/council/pkg/utils"
)

// planningPhase runs the architect/reviewer discussion and extracts the
// implementation plan. Every model call here is mandatory: a failed call or
// an unparseable plan fails the run in the planning phase.
func (r *run) planningPhase(ctx context.Context) (*parser.Plan, error) {
	e := r.engine
	planner := r.roles.Model(RolePlanner)
	reviewer := r.roles.Model(RoleReviewer)

	r.say(r.architectName, "Analyzing the request...", KindDiscussion)
	proposalRes, err := e.invoker.Invoke(ctx, planner,
		prompts.BuildArchitectProposalMessages(r.architectName, r.reviewerName, r.sess.Task),
		r.callOptions(e.Timeouts.Proposal))
	if err != nil {
		r.sayCallFailure(r.architectName, err)
		return nil, fmt.Errorf("architect proposal: %w", err)
	}
	proposal := llm.StripThinkTags(proposalRes.Content)
	r.say(r.architectName, proposal, KindProposal)

	review := ""
	if reviewer != "" {
		r.say(r.reviewerName, "Reviewing the proposal...", KindDiscussion)
		reviewRes, err := e.invoker.Invoke(ctx, reviewer,
			prompts.BuildReviewerResponseMessages(r.architectName, r.reviewerName, r.sess.Task, proposal),
			r.callOptions(e.Timeouts.Review))
		if err != nil {
			r.sayCallFailure(r.reviewerName, err)
			return nil, fmt.Errorf("reviewer response: %w", err)
		}
		review = llm.StripThinkTags(reviewRes.Content)
		r.say(r.reviewerName, review, KindReview)
	}

	r.say(r.architectName, "Creating implementation plan...", KindDiscussion)
	planRes, err := e.invoker.Invoke(ctx, planner,
		prompts.BuildPlanRequestMessages(r.architectName, r.reviewerName, r.sess.Task, proposal, review),
		r.generationOptions(e.Timeouts.Plan))
	if err != nil {
		r.sayCallFailure(r.architectName, err)
		return nil, fmt.Errorf("plan request: %w", err)
	}

	plan, ok := parser.ExtractPlan(llm.StripThinkTags(planRes.Content))
	if !ok {
		r.say("System", "❌ Failed to create plan", KindError)
		return nil, errPlanExtraction
	}

	r.sess.Plan = plan
	r.say("System", fmt.Sprintf("✅ Plan approved with %d steps", len(plan.Steps)), KindAgreement)
	return plan, nil
}

// codingPhase implements the plan step by step. A step that yields no
// parseable file blocks is skipped with a warning; a failed coder call fails
// the run. Files from completed steps always survive a later failure.
func (r *run) codingPhase(ctx context.Context, plan *parser.Plan) error {
	e := r.engine
	coder := r.roles.Model(RoleCoder)
	reviewer := r.roles.Model(RoleReviewer)

	for i, step := range plan.Steps {
		e.logger.LogProcessStep(fmt.Sprintf("🔨 Step %d/%d: %s", i+1, len(plan.Steps), step.Description))
		r.say(r.coderName, fmt.Sprintf("Step %d: %s", step.ID, step.Description), KindDiscussion)

		messages := r.coderMessages(step.Description)
		codeRes, err := e.invoker.Invoke(ctx, coder, messages, r.generationOptions(e.Timeouts.Coding))
		if err != nil {
			r.sayCallFailure(r.coderName, err)
			return fmt.Errorf("coding step %d: %w", step.ID, err)
		}

		content := llm.StripThinkTags(codeRes.Content)
		files := parser.ExtractFiles(content)
		if len(files) == 0 {
			e.logger.Logf("step %d produced no code blocks, response: %s",
				step.ID, utils.TruncateString(content, 200))
			continue
		}

		r.mergeWithHistory(step.ID, files)
		r.say(r.coderName, fmt.Sprintf("✅ Created %d file(s): %s",
			len(files), strings.Join(sortedKeys(files), ", ")), KindCode)

		if reviewer != "" {
			r.reviewStep(ctx, step, files)
		}
	}
	return nil
}

// coderMessages builds the step prompt, attaching the designer's visual
// reference when one exists. Attachment failures degrade to the plain prompt.
func (r *run) coderMessages(description string) []prompts.Message {
	if r.designRef == "" {
		return prompts.BuildCoderStepMessages(description)
	}
	messages := prompts.BuildCoderStepWithReferenceMessages(description)
	if err := llm.AddImageToMessage(&messages[len(messages)-1], r.designRef); err != nil {
		r.engine.logger.Logf("could not attach design reference: %v", err)
		return prompts.BuildCoderStepMessages(description)
	}
	return messages
}

// reviewStep asks the reviewer to judge one step's files. Disapproval keeps
// the generated files: the disagreement is recorded and later steps continue
// unchanged. A failed review call only logs.
func (r *run) reviewStep(ctx context.Context, step parser.Step, files map[string]string) {
	e := r.engine
	res, err := e.invoker.Invoke(ctx, r.roles.Model(RoleReviewer),
		prompts.BuildStepReviewMessages(r.reviewerName, step.Description, files),
		r.callOptions(e.Timeouts.Review))
	if err != nil {
		e.logger.Logf("step %d review skipped: %v", step.ID, err)
		return
	}

	reply := llm.StripThinkTags(res.Content)
	if ContainsApproval(reply) {
		r.say(r.reviewerName, fmt.Sprintf("✅ Step %d approved", step.ID), KindAgreement)
		return
	}
	r.say(r.reviewerName, reply, KindDisagreement)
}

// mergeWithHistory records a revision for every incoming file, then merges
// the batch into the session.
func (r *run) mergeWithHistory(stepID int, files map[string]string) {
	for _, name := range sortedKeys(files) {
		before, existed := r.sess.Files[name]
		rev := r.tracker.Record(name, before, files[name], stepID)
		action := "created"
		if existed {
			action = "modified"
			r.engine.logger.LogProcessStep(fmt.Sprintf("📝 %s updated (%s)", name, rev.Summary()))
		}
		r.publish(events.EventTypeFileChanged,
			events.FileChangedEvent(r.sess.ID, name, action, len(files[name])))
	}
	r.sess.MergeFiles(files)
	r.sync()
}

// testingPhase asks every participating model for a verdict on the final file
// set. Verification never fails the run: call errors and FAIL verdicts are
// recorded in the test results and the session still completes.
func (r *run) testingPhase(ctx context.Context) {
	e := r.engine

	verifier := r.reviewerName
	if verifier == "" {
		verifier = "System"
	}
	r.say(verifier, fmt.Sprintf("Verifying %d files...", len(r.sess.Files)), KindDiscussion)

	planName := ""
	if r.sess.Plan != nil {
		planName = r.sess.Plan.Name
	}

	verdicts := make(map[string]string)
	allPass := true
	for _, model := range r.roles.ParticipatingModels() {
		res, err := e.invoker.Invoke(ctx, model,
			prompts.BuildTesterMessages(planName, r.sess.FileOrder),
			r.callOptions(e.Timeouts.Testing))
		if err != nil {
			verdicts[model] = fmt.Sprintf("error: %v", err)
			allPass = false
			e.logger.Logf("verification by %s failed: %v", model, err)
			continue
		}
		reply := llm.StripThinkTags(res.Content)
		verdicts[model] = reply
		if !ContainsPass(reply) {
			allPass = false
		}
	}

	r.sess.TestResult = &TestResults{Passed: allPass, Verdicts: verdicts}
	if allPass {
		r.say(verifier, "✅ Files look good!", KindAgreement)
	} else {
		r.say("System", "⚠️ Verification incomplete: not every model confirmed the implementation", KindDisagreement)
	}
}

// designerStep asks the designer role for a visual reference ahead of coding.
// The designer is optional: any failure logs and the run continues without a
// reference.
func (r *run) designerStep(ctx context.Context) {
	model := r.roles.Model(RoleDesigner)
	if model == "" {
		return
	}

	name := AgentName(RoleDesigner, model)
	r.say(name, "Sketching a visual reference...", KindDiscussion)
	res, err := r.engine.invoker.Invoke(ctx, model,
		prompts.BuildDesignerMessages(name, r.sess.Task),
		r.callOptions(r.engine.Timeouts.Visual))
	if err != nil {
		r.engine.logger.Logf("designer step skipped: %v", err)
		r.say("System", "⚠️ Designer unavailable, continuing without a visual reference", KindDiscussion)
		return
	}

	if reply := llm.StripThinkTags(res.Content); reply != "" {
		r.say(name, reply, KindDiscussion)
	}
	if res.ImageRef != "" {
		r.designRef = res.ImageRef
		r.say(name, "🎨 Produced a visual reference for the coder", KindAgreement)
	}
}

// eyesStep runs visual QA over a screenshot of the generated app and, when
// issues are reported, exactly one corrective pass. Both the QA call and the
// fix are optional: failures log and the run continues.
func (r *run) eyesStep(ctx context.Context) {
	model := r.roles.Model(RoleEyes)
	if model == "" {
		return
	}
	if r.opts.ScreenshotRef == "" {
		r.engine.logger.Log("visual QA skipped: no screenshot provided")
		return
	}

	name := AgentName(RoleEyes, model)
	r.say(name, "Inspecting the rendered result...", KindDiscussion)
	res, err := r.engine.invoker.InvokeWithImage(ctx, model,
		prompts.EyesPrompt(r.sess.Task, r.sess.FileOrder), r.opts.ScreenshotRef,
		r.callOptions(r.engine.Timeouts.Visual))
	if err != nil {
		r.engine.logger.Logf("visual QA skipped: %v", err)
		r.say("System", "⚠️ Visual QA unavailable, skipping", KindDiscussion)
		return
	}

	reply := llm.StripThinkTags(res.Content)
	r.say(name, reply, KindReview)
	if !ContainsIssues(reply) {
		return
	}

	r.say("System", "⚠️ Visual QA found issues, running one corrective pass", KindDisagreement)
	r.fixPass(ctx, reply)
}

// fixPass sends the reported issues plus current files to the debugger role
// (falling back to the coder) for a single corrective generation.
func (r *run) fixPass(ctx context.Context, feedback string) {
	model := r.roles.Model(RoleDebugger)
	if model == "" {
		model = r.roles.Model(RoleCoder)
	}
	name := AgentName(RoleDebugger, model)

	res, err := r.engine.invoker.Invoke(ctx, model,
		prompts.BuildDebuggerMessages(feedback, r.sess.Files),
		r.generationOptions(r.engine.Timeouts.Coding))
	if err != nil {
		r.engine.logger.Logf("corrective pass skipped: %v", err)
		return
	}

	files := parser.ExtractFiles(llm.StripThinkTags(res.Content))
	if len(files) == 0 {
		r.engine.logger.Log("corrective pass produced no code blocks")
		return
	}

	r.mergeWithHistory(0, files)
	r.say(name, fmt.Sprintf("🔧 Applied fixes to %d file(s)", len(files)), KindCode)
}
