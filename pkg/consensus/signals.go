package consensus

import (
	"strings"

	"github.com/alantheprice/council/pkg/prompts"
)

// Success and failure signals are plain substring matches on model output.
// The remote models are not structured APIs; the prompt templates ask for
// these exact tokens and this is the other half of that contract. Keep the
// matching rules in sync with the templates and do not tighten them.

// ContainsApproval reports whether a review reply carries the approval token.
// The token is matched with its exact casing.
func ContainsApproval(reply string) bool {
	return strings.Contains(reply, prompts.ApprovalSignal)
}

// ContainsPass reports whether a verification verdict carries the pass token,
// in any casing.
func ContainsPass(reply string) bool {
	return strings.Contains(strings.ToUpper(reply), prompts.PassSignal)
}

// ContainsIssues reports whether visual QA feedback flags problems, in any
// casing.
func ContainsIssues(reply string) bool {
	return strings.Contains(strings.ToLower(reply), prompts.IssuesSignal)
}

// NeedsFix reports whether a chat-mode review should trigger the single
// corrective pass: either the warning marker or one of the issue words.
func NeedsFix(review string) bool {
	if strings.Contains(review, "⚠️") {
		return true
	}
	lower := strings.ToLower(review)
	for _, word := range []string{"issue", "bug", "problem"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
