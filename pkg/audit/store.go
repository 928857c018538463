package audit

import "context"

// Store is the persistence gateway for audit records. Implementations must
// guarantee atomic visibility of a fully-formed record and must serialize
// version assignment per entity: concurrent appends for the same
// (auditableType, auditableID) may never race to the same version number.
// Appends for different entities need no cross-entity coordination.
type Store interface {
	// AppendNext durably appends the record, assigning version
	// 1 + max(existing versions for the entity). The returned record is the
	// stored form with Version populated. Failures wrap
	// ErrPersistenceFailure where the cause is the backing store.
	AppendNext(ctx context.Context, rec Record) (Record, error)

	// RecordsFor returns all records for the entity ordered by version
	// ascending. An unknown entity yields an empty slice, not an error.
	RecordsFor(ctx context.Context, auditableType, auditableID string) ([]Record, error)
}

// Sink receives a copy of audit traffic for operators: every persisted
// record, plus every record lost to a fail-open failure. Sinks are
// best-effort side channels; their errors never affect the write path.
type Sink interface {
	// Published after a successful append.
	RecordAppended(ctx context.Context, rec Record)
	// Published when a fail-open policy swallowed a failure, so the loss
	// stays observable outside the primary store.
	RecordLost(ctx context.Context, rec Record, cause error)
}
