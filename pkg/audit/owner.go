package audit

import "fmt"

// resolveOwner walks the policy's association chain left to right and returns
// the identity of the final entity. An empty chain means the entity is its
// own owner.
//
// Errors: ErrBrokenOwnerChain (wrapped with the failing link) when any link
// yields no associated entity. The interceptor subjects this to the policy's
// fail mode, like a persistence failure.
func resolveOwner(e Auditable, chain []string) (ownerID, ownerType string, err error) {
	current := e
	for _, link := range chain {
		next := current.AuditableAssociation(link)
		if next == nil {
			return "", "", fmt.Errorf("resolve owner of %s/%s: link %q absent: %w",
				e.AuditableType(), e.AuditableID(), link, ErrBrokenOwnerChain)
		}
		current = next
	}
	return current.AuditableID(), current.AuditableType(), nil
}
