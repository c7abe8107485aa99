package consensus

import (
	"errors"
	"testing"
)

func TestRolesFromModelsTwoModels(t *testing.T) {
	roles, err := RolesFromModels([]string{"a/model-1", "a/model-2"}, false)
	if err != nil {
		t.Fatalf("RolesFromModels: %v", err)
	}

	if got := roles.Model(RolePlanner); got != "a/model-1" {
		t.Errorf("planner = %s, want a/model-1", got)
	}
	if got := roles.Model(RoleCoder); got != "a/model-1" {
		t.Errorf("coder = %s, want a/model-1", got)
	}
	if got := roles.Model(RoleReviewer); got != "a/model-2" {
		t.Errorf("reviewer = %s, want a/model-2", got)
	}
	if got := roles.Model(RoleDesigner); got != "" {
		t.Errorf("designer = %s, want disabled without extended mode", got)
	}
}

func TestRolesFromModelsSingleModelReviewsItself(t *testing.T) {
	roles, err := RolesFromModels([]string{"solo"}, false)
	if err != nil {
		t.Fatalf("RolesFromModels: %v", err)
	}
	if got := roles.Model(RoleReviewer); got != "solo" {
		t.Errorf("reviewer = %s, want solo", got)
	}
}

func TestRolesFromModelsExtendedFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		models   []string
		designer string
		eyes     string
		debugger string
	}{
		{"two models", []string{"m1", "m2"}, "m2", "m2", "m1"},
		{"three models", []string{"m1", "m2", "m3"}, "m3", "m2", "m1"},
		{"four models", []string{"m1", "m2", "m3", "m4"}, "m3", "m4", "m1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles, err := RolesFromModels(tt.models, true)
			if err != nil {
				t.Fatalf("RolesFromModels: %v", err)
			}
			if got := roles.Model(RoleDesigner); got != tt.designer {
				t.Errorf("designer = %s, want %s", got, tt.designer)
			}
			if got := roles.Model(RoleEyes); got != tt.eyes {
				t.Errorf("eyes = %s, want %s", got, tt.eyes)
			}
			if got := roles.Model(RoleDebugger); got != tt.debugger {
				t.Errorf("debugger = %s, want %s", got, tt.debugger)
			}
		})
	}
}

func TestRolesFromModelsValidation(t *testing.T) {
	var verr *ValidationError

	_, err := RolesFromModels(nil, false)
	if !errors.As(err, &verr) {
		t.Errorf("empty list error = %v, want ValidationError", err)
	}

	_, err = RolesFromModels([]string{"m1", "  "}, false)
	if !errors.As(err, &verr) {
		t.Errorf("blank id error = %v, want ValidationError", err)
	}
}

func TestRolesValidateRequiresPlannerAndCoder(t *testing.T) {
	roles := Roles{
		RolePlanner: {Model: "m1", Enabled: true},
	}
	if err := roles.Validate(); err == nil {
		t.Error("missing coder passed validation")
	}

	roles[RoleCoder] = RoleAssignment{Model: "m1", Enabled: false}
	if err := roles.Validate(); err == nil {
		t.Error("disabled coder passed validation")
	}

	roles[RoleCoder] = RoleAssignment{Model: "m1", Enabled: true}
	if err := roles.Validate(); err != nil {
		t.Errorf("valid roles failed validation: %v", err)
	}
}

func TestParticipatingModelsDedupes(t *testing.T) {
	roles, err := RolesFromModels([]string{"m1", "m2"}, true)
	if err != nil {
		t.Fatalf("RolesFromModels: %v", err)
	}
	got := roles.ParticipatingModels()
	want := []string{"m1", "m2"}
	if len(got) != len(want) {
		t.Fatalf("participating = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("participating = %v, want %v", got, want)
		}
	}
}

func TestAgentName(t *testing.T) {
	tests := []struct {
		role  Role
		model string
		want  string
	}{
		{RolePlanner, "openai/gpt-4o", "Architect (gpt-4o)"},
		{RoleReviewer, "anthropic/claude-3-haiku", "Reviewer (claude-3-haiku)"},
		{RoleCoder, "local-model", "Coder (local-model)"},
		{RoleDesigner, "a/b/c", "Designer (c)"},
		{RoleEyes, "vision-model", "Eyes (vision-model)"},
		{Role("weird"), "m", "Agent (m)"},
	}

	for _, tt := range tests {
		if got := AgentName(tt.role, tt.model); got != tt.want {
			t.Errorf("AgentName(%s, %s) = %q, want %q", tt.role, tt.model, got, tt.want)
		}
	}
}
