package audit

import (
	"context"
	"fmt"
	"time"

	"chronicle/pkg/requestcontext"
)

// History is the read side: it replays an entity's ordered records to
// reconstruct attribute state at any past instant. Reconstruction is a pure
// fold over persisted diffs; it performs no writes.
type History struct {
	store Store
}

// NewHistory constructs the reconstructor over a store.
func NewHistory(store Store) *History {
	return &History{store: store}
}

// RecordsFor returns the entity's full audit trail, version ascending.
func (h *History) RecordsFor(ctx context.Context, e Auditable) ([]Record, error) {
	return h.store.RecordsFor(ctx, e.AuditableType(), e.AuditableID())
}

// AttributesAt rebuilds the entity's attribute state as of ts by folding the
// changes of every record with CreatedAt <= ts, in version order, applying
// each attribute's after value over the running snapshot. Destroy records
// fold identically: their absent after values remove the attributes, so a
// timestamp past deletion yields the destroyed state. A timestamp before the
// first record yields an empty snapshot.
func (h *History) AttributesAt(ctx context.Context, e Auditable, ts time.Time) (Snapshot, error) {
	records, err := h.store.RecordsFor(ctx, e.AuditableType(), e.AuditableID())
	if err != nil {
		return nil, fmt.Errorf("load records for %s/%s: %w", e.AuditableType(), e.AuditableID(), err)
	}

	snapshot := make(Snapshot)
	for _, rec := range records {
		if rec.CreatedAt.After(ts) {
			break
		}
		for name, change := range rec.Changes {
			if change.After.IsAbsent() {
				delete(snapshot, name)
				continue
			}
			snapshot[name] = change.After
		}
	}
	return snapshot, nil
}

// LatestSnapshot is the degenerate case of AttributesAt at the present. The
// boundary instant comes from the request context when one is pinned there,
// so callers can make it deterministic.
func (h *History) LatestSnapshot(ctx context.Context, e Auditable) (Snapshot, error) {
	return h.AttributesAt(ctx, e, requestcontext.Now(ctx))
}
