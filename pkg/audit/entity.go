package audit

// Auditable is the reflection surface the engine needs from a host entity:
// stable identity, attribute enumeration with value lookup, and association
// traversal for owner chains. The host adapts its ORM models (or plain
// structs) to this interface; the engine never imports the host's data layer.
type Auditable interface {
	// AuditableID returns the entity's stable identifier.
	AuditableID() string
	// AuditableType returns the entity's type name, e.g. "book".
	AuditableType() string
	// AuditableAttributes returns the entity's full attribute set. A nil
	// value means the attribute is currently unset.
	AuditableAttributes() map[string]any
	// AuditableAssociation follows a named association and returns the
	// related entity, or nil when the relation is absent.
	AuditableAssociation(name string) Auditable
}
