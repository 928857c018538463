package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who performed an audited action. The zero value means no
// acting user was known, which is permitted; records then carry null user
// identity.
type Actor struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// IsZero reports whether no acting user is set.
func (a Actor) IsZero() bool { return a.ID == "" && a.Type == "" }

// Record is one immutable, versioned audit log entry. Once a store accepts it
// the engine never mutates or deletes it.
type Record struct {
	ID            uuid.UUID
	AuditableID   string
	AuditableType string
	OwnerID       string
	OwnerType     string
	Actor         Actor
	Action        Action
	Changes       Changes
	Comment       string
	Version       int64
	CreatedAt     time.Time

	// Enrichment from the request context when the event originated in an
	// HTTP unit of work. Empty otherwise; no versioning invariant depends
	// on these.
	RemoteAddress string
	UserAgent     string
	RequestID     string
}
