// Execution-context state rides on context.Context so it is scoped to one
// logical unit of work and can never leak across goroutines: derived contexts
// are immutable, so "restore on exit" (including error exits) is inherent
// rather than enforced with defers.
package audit

import "context"

// Context key types (unexported for encapsulation).
type (
	actorKey    struct{}
	disabledKey struct{}
	overrideKey struct{}
)

// WithActor injects the ambient acting user for the unit of work. Middleware
// sets this once per request; AuditAs overrides it for a delimited block.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// CurrentActor resolves the acting user: the most recent AuditAs override
// wins, then the ambient actor, then the zero Actor (no user, which is
// permitted).
func CurrentActor(ctx context.Context) Actor {
	if stack, ok := ctx.Value(overrideKey{}).([]Actor); ok && len(stack) > 0 {
		return stack[len(stack)-1]
	}
	if actor, ok := ctx.Value(actorKey{}).(Actor); ok {
		return actor
	}
	return Actor{}
}

// Enabled reports whether auditing is active in this unit of work.
// Auditing defaults to enabled.
func Enabled(ctx context.Context) bool {
	disabled, ok := ctx.Value(disabledKey{}).(bool)
	return !ok || !disabled
}

// WithoutAuditing runs fn with auditing disabled. The suppression holds
// strictly within fn's dynamic extent; the caller's context is untouched
// whether fn succeeds or fails.
func WithoutAuditing(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, disabledKey{}, true))
}

// AuditAs runs fn with every record attributed to actor. Overrides nest:
// the innermost AuditAs wins, and the prior acting user (or absence thereof)
// applies again once fn returns, error or not.
func AuditAs(ctx context.Context, actor Actor, fn func(ctx context.Context) error) error {
	prev, _ := ctx.Value(overrideKey{}).([]Actor)
	stack := make([]Actor, len(prev), len(prev)+1)
	copy(stack, prev)
	stack = append(stack, actor)
	return fn(context.WithValue(ctx, overrideKey{}, stack))
}
