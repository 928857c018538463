package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/pkg/audit"
	"chronicle/pkg/audit/store/memory"
)

type book struct {
	id    string
	attrs map[string]any
}

func (b *book) AuditableID() string                         { return b.id }
func (b *book) AuditableType() string                       { return "book" }
func (b *book) AuditableAttributes() map[string]any         { return b.attrs }
func (b *book) AuditableAssociation(string) audit.Auditable { return nil }

// seedTrail records a create and an update for book b1 and returns a router
// serving the resulting trail. The clock advances one minute per record.
func seedTrail(t *testing.T) (http.Handler, time.Time) {
	t.Helper()

	registry := audit.NewRegistry()
	require.NoError(t, registry.Audit("book", []audit.Action{audit.ActionCreate, audit.ActionUpdate}))

	store := memory.NewInMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	auditor := audit.NewAuditor(registry, store,
		audit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		audit.WithClock(func() time.Time {
			now = now.Add(time.Minute)
			return now
		}),
	)

	b := &book{id: "b1", attrs: map[string]any{"title": "Dune", "pages": 412}}
	ctx := context.Background()
	require.NoError(t, auditor.RecordCreate(ctx, b))

	before := map[string]any{"title": "Dune", "pages": 412}
	b.attrs = map[string]any{"title": "Dune Messiah", "pages": 412}
	require.NoError(t, auditor.RecordUpdate(ctx, b, before))

	handler := NewHandler(audit.NewHistory(store), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewRouter(handler, nil), base
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestRecords_ReturnsTrailVersionAscending(t *testing.T) {
	router, _ := seedTrail(t)

	rr := get(t, router, "/v1/entities/book/b1/records")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Records []recordView `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Records, 2)

	assert.Equal(t, int64(1), body.Records[0].Version)
	assert.Equal(t, "create", body.Records[0].Action)
	assert.Equal(t, int64(2), body.Records[1].Version)
	assert.Equal(t, "update", body.Records[1].Action)
	assert.Contains(t, body.Records[1].Changes, "title")
}

func TestRecords_UnknownEntityIsEmpty(t *testing.T) {
	router, _ := seedTrail(t)

	rr := get(t, router, "/v1/entities/book/missing/records")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Records []recordView `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Empty(t, body.Records)
}

func TestSnapshot_LatestState(t *testing.T) {
	router, _ := seedTrail(t)

	rr := get(t, router, "/v1/entities/book/b1/snapshot")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Attributes map[string]audit.Value `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Attributes["title"].Equal(audit.StringValue("Dune Messiah")))
	assert.True(t, body.Attributes["pages"].Equal(audit.IntValue(412)))
}

func TestSnapshot_AsOfTimestamp(t *testing.T) {
	router, base := seedTrail(t)

	// Between the create (base+1m) and the update (base+2m).
	at := base.Add(90 * time.Second).Format(time.RFC3339)
	rr := get(t, router, "/v1/entities/book/b1/snapshot?at="+at)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Attributes map[string]audit.Value `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Attributes["title"].Equal(audit.StringValue("Dune")))
}

func TestSnapshot_BadTimestampRejected(t *testing.T) {
	router, _ := seedTrail(t)

	rr := get(t, router, "/v1/entities/book/b1/snapshot?at=yesterday")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthz(t *testing.T) {
	router, _ := seedTrail(t)
	assert.Equal(t, http.StatusOK, get(t, router, "/healthz").Code)
}
