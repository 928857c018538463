package audit

import "errors"

// Sentinel errors for the engine's failure kinds. Stores and the resolver
// return these (optionally wrapped) so callers can translate them with
// errors.Is.
//
//   - ErrPolicyConflict: a registration set both Only and Except for the same
//     (type, action); always fatal at registration time, never deferred.
//   - ErrBrokenOwnerChain: an association link in a policy's owner chain
//     yielded no entity; subject to the policy's fail mode.
//   - ErrPersistenceFailure: the durable store rejected or could not confirm
//     an append; subject to the policy's fail mode.
var (
	ErrPolicyConflict     = errors.New("audit policy conflict")
	ErrBrokenOwnerChain   = errors.New("broken owner chain")
	ErrPersistenceFailure = errors.New("audit persistence failure")
)
