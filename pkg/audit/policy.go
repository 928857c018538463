package audit

import (
	"fmt"
	"sync"
)

// CommentFunc produces the human-readable comment attached to a record.
// It must be pure: same entity, actor and action yield the same string.
type CommentFunc func(e Auditable, actor Actor, action Action) string

// Policy is the per-(entity type, action) auditing configuration.
// Invariant: Only and Except are never both non-empty; Audit and AuditStrict
// reject such registrations with ErrPolicyConflict.
type Policy struct {
	Only       map[string]bool
	Except     map[string]bool
	OwnerChain []string
	Comment    CommentFunc
	// FailClosed makes persistence and owner-resolution failures abort the
	// triggering operation. Honored for mutating actions only; find is
	// always effectively fail-open.
	FailClosed bool
}

// PolicyOption configures a Policy at registration time.
type PolicyOption func(*Policy)

// Only restricts auditing to the named attributes.
func Only(names ...string) PolicyOption {
	return func(p *Policy) {
		if p.Only == nil {
			p.Only = make(map[string]bool, len(names))
		}
		for _, n := range names {
			p.Only[n] = true
		}
	}
}

// Except audits all attributes but the named ones.
func Except(names ...string) PolicyOption {
	return func(p *Policy) {
		if p.Except == nil {
			p.Except = make(map[string]bool, len(names))
		}
		for _, n := range names {
			p.Except[n] = true
		}
	}
}

// OwnedBy declares the association chain from the entity toward the record
// owner. Records are filed under the final entity in the chain. An empty
// chain (the default) files records under the entity itself.
func OwnedBy(chain ...string) PolicyOption {
	return func(p *Policy) { p.OwnerChain = chain }
}

// Message sets the comment callback for matching records.
func Message(fn CommentFunc) PolicyOption {
	return func(p *Policy) { p.Comment = fn }
}

type policyKey struct {
	entityType string
	action     Action
}

// Registry maps (entity type, action) pairs to policies. Registration
// normally happens at startup; Lookup is safe for concurrent use with late
// registrations.
type Registry struct {
	mu       sync.RWMutex
	policies map[policyKey]Policy
}

// NewRegistry creates an empty policy registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[policyKey]Policy)}
}

// Audit registers a fail-open policy for the given entity type and actions.
// Registering the same (type, action) pair again replaces the prior policy
// wholesale; there is no merging.
//
// Errors: ErrPolicyConflict when both Only and Except are set, or a plain
// error for an unknown action. Registration errors are fatal configuration
// mistakes and are surfaced immediately, never deferred to audit time.
func (r *Registry) Audit(entityType string, actions []Action, opts ...PolicyOption) error {
	return r.register(entityType, actions, false, opts)
}

// AuditStrict registers a fail-closed policy: persistence or owner failures
// abort the triggering mutation. Find audits remain fail-open regardless.
func (r *Registry) AuditStrict(entityType string, actions []Action, opts ...PolicyOption) error {
	return r.register(entityType, actions, true, opts)
}

func (r *Registry) register(entityType string, actions []Action, failClosed bool, opts []PolicyOption) error {
	if entityType == "" {
		return fmt.Errorf("register audit policy: entity type cannot be empty")
	}
	if len(actions) == 0 {
		return fmt.Errorf("register audit policy for %q: at least one action required", entityType)
	}

	var p Policy
	p.FailClosed = failClosed
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	if len(p.Only) > 0 && len(p.Except) > 0 {
		return fmt.Errorf("register audit policy for %q: only and except are mutually exclusive: %w",
			entityType, ErrPolicyConflict)
	}

	for _, a := range actions {
		if !a.IsValid() {
			return fmt.Errorf("register audit policy for %q: unknown action %q", entityType, a)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range actions {
		r.policies[policyKey{entityType: entityType, action: a}] = p
	}
	return nil
}

// Lookup returns the policy for (entityType, action). A false second return
// means the action is not audited, which is a legitimate non-error state:
// the interceptor turns it into a no-op.
func (r *Registry) Lookup(entityType string, action Action) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[policyKey{entityType: entityType, action: action}]
	return p, ok
}
