package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chronicle/pkg/audit"
	"chronicle/pkg/requestcontext"
)

// Handler serves the read-side query surface over an entity's audit trail.
type Handler struct {
	history *audit.History
	logger  *slog.Logger
}

// NewHandler constructs the query handler.
func NewHandler(history *audit.History, logger *slog.Logger) *Handler {
	return &Handler{history: history, logger: logger}
}

// entityRef adapts a (type, id) pair from the URL to the engine's reflection
// surface. The read side never needs attributes or associations.
type entityRef struct {
	id         string
	entityType string
}

func (e entityRef) AuditableID() string                         { return e.id }
func (e entityRef) AuditableType() string                       { return e.entityType }
func (e entityRef) AuditableAttributes() map[string]any         { return nil }
func (e entityRef) AuditableAssociation(string) audit.Auditable { return nil }

func entityFromRequest(r *http.Request) entityRef {
	return entityRef{
		entityType: chi.URLParam(r, "type"),
		id:         chi.URLParam(r, "id"),
	}
}

// recordView is the JSON shape of one audit record.
type recordView struct {
	ID            string        `json:"id"`
	AuditableType string        `json:"auditable_type"`
	AuditableID   string        `json:"auditable_id"`
	OwnerType     string        `json:"owner_type,omitempty"`
	OwnerID       string        `json:"owner_id,omitempty"`
	ActorID       string        `json:"actor_id,omitempty"`
	ActorType     string        `json:"actor_type,omitempty"`
	Action        string        `json:"action"`
	Changes       audit.Changes `json:"changes"`
	Comment       string        `json:"comment,omitempty"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	RemoteAddress string        `json:"remote_address,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
}

func toView(rec audit.Record) recordView {
	return recordView{
		ID:            rec.ID.String(),
		AuditableType: rec.AuditableType,
		AuditableID:   rec.AuditableID,
		OwnerType:     rec.OwnerType,
		OwnerID:       rec.OwnerID,
		ActorID:       rec.Actor.ID,
		ActorType:     rec.Actor.Type,
		Action:        string(rec.Action),
		Changes:       rec.Changes,
		Comment:       rec.Comment,
		Version:       rec.Version,
		CreatedAt:     rec.CreatedAt,
		RemoteAddress: rec.RemoteAddress,
		UserAgent:     rec.UserAgent,
		RequestID:     rec.RequestID,
	}
}

// Records returns the entity's full audit trail, version ascending.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	entity := entityFromRequest(r)
	records, err := h.history.RecordsFor(r.Context(), entity)
	if err != nil {
		h.serverError(w, "list records", err)
		return
	}

	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, toView(rec))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"records": views})
}

// Snapshot reconstructs the entity's attribute state. Without a query
// parameter it returns the latest state; with ?at=<RFC3339> it returns the
// state as of that instant.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	entity := entityFromRequest(r)

	at := requestcontext.Now(r.Context())
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid 'at' timestamp, want RFC3339", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	snapshot, err := h.history.AttributesAt(r.Context(), entity, at)
	if err != nil {
		h.serverError(w, "reconstruct snapshot", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"at":         at.UTC().Format(time.RFC3339Nano),
		"attributes": snapshot,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
