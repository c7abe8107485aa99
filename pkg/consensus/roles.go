package consensus

import (
	"fmt"
	"strings"
)

// Role is a fixed responsibility bound to one model for a run.
type Role string

const (
	RolePlanner  Role = "planner"
	RoleReviewer Role = "reviewer"
	RoleCoder    Role = "coder"
	RoleDesigner Role = "designer"
	RoleEyes     Role = "eyes"
	RoleDebugger Role = "debugger"
)

// RoleAssignment binds a role to a model. A disabled assignment skips that
// role's work without failing the run.
type RoleAssignment struct {
	Model   string `json:"model"`
	Enabled bool   `json:"enabled"`
}

// Roles maps every role to its assignment for one run.
type Roles map[Role]RoleAssignment

// ValidationError reports a caller mistake in the run request, found before
// any model call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// RolesFromModels derives role assignments from an ordered model list the way
// sessions have always been started: the first model architects and codes,
// the second (or the first again) reviews. Extended runs hand the optional
// visual roles to later models in the list, falling back to the reviewer's
// model for designer/eyes and the coder's model for the debugger.
func RolesFromModels(models []string, extended bool) (Roles, error) {
	if len(models) == 0 {
		return nil, &ValidationError{Msg: "at least one model identifier is required"}
	}
	for i, m := range models {
		if strings.TrimSpace(m) == "" {
			return nil, &ValidationError{Msg: fmt.Sprintf("model identifier %d is empty", i)}
		}
	}

	agent1 := models[0]
	agent2 := models[0]
	if len(models) > 1 {
		agent2 = models[1]
	}

	roles := Roles{
		RolePlanner:  {Model: agent1, Enabled: true},
		RoleCoder:    {Model: agent1, Enabled: true},
		RoleReviewer: {Model: agent2, Enabled: true},
	}

	if extended {
		designer := agent2
		if len(models) > 2 {
			designer = models[2]
		}
		eyes := agent2
		if len(models) > 3 {
			eyes = models[3]
		}
		roles[RoleDesigner] = RoleAssignment{Model: designer, Enabled: true}
		roles[RoleEyes] = RoleAssignment{Model: eyes, Enabled: true}
		roles[RoleDebugger] = RoleAssignment{Model: agent1, Enabled: true}
	}

	return roles, nil
}

// Validate checks that the mandatory roles resolve to models. Planning cannot
// run without a planner and nothing can run without a coder; every other role
// is optional.
func (r Roles) Validate() error {
	for _, required := range []Role{RolePlanner, RoleCoder} {
		assignment, ok := r[required]
		if !ok || !assignment.Enabled || strings.TrimSpace(assignment.Model) == "" {
			return &ValidationError{Msg: fmt.Sprintf("role %q must be assigned a model", required)}
		}
	}
	return nil
}

// Model returns the model id for a role, or "" when the role is absent or
// disabled.
func (r Roles) Model(role Role) string {
	assignment, ok := r[role]
	if !ok || !assignment.Enabled {
		return ""
	}
	return assignment.Model
}

// ParticipatingModels returns the distinct enabled models in a stable order:
// planner first, then reviewer, then the rest as declared.
func (r Roles) ParticipatingModels() []string {
	order := []Role{RolePlanner, RoleCoder, RoleReviewer, RoleDesigner, RoleEyes, RoleDebugger}
	seen := make(map[string]bool)
	var models []string
	for _, role := range order {
		model := r.Model(role)
		if model != "" && !seen[model] {
			seen[model] = true
			models = append(models, model)
		}
	}
	return models
}

// AgentName builds the display name agents speak under in the transcript,
// e.g. "Architect (model-1)".
func AgentName(role Role, model string) string {
	labels := map[Role]string{
		RolePlanner:  "Architect",
		RoleReviewer: "Reviewer",
		RoleCoder:    "Coder",
		RoleDesigner: "Designer",
		RoleEyes:     "Eyes",
		RoleDebugger: "Debugger",
	}
	label, ok := labels[role]
	if !ok {
		label = "Agent"
	}
	suffix := model
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		suffix = model[idx+1:]
	}
	return fmt.Sprintf("%s (%s)", label, suffix)
}
