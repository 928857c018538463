package audit

import "fmt"

// Action identifies which lifecycle event an audit record describes.
// Invariant: the value must be one of the four supported actions.
//
// Usage: construct via ParseAction at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Action string

// Supported lifecycle actions.
const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDestroy Action = "destroy"
	ActionFind    Action = "find"
)

// validActions is the single source of truth for valid actions.
var validActions = map[Action]bool{
	ActionCreate:  true,
	ActionUpdate:  true,
	ActionDestroy: true,
	ActionFind:    true,
}

// ParseAction constructs an Action from external input.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("unknown audit action: %q", s)
	}
	return a, nil
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	return validActions[a]
}

// Mutating reports whether the action changes entity state. Find is a pure
// access marker and is always effectively fail-open (see Auditor).
func (a Action) Mutating() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDestroy
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}
