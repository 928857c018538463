package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"chronicle/pkg/audit"
	txcontext "chronicle/pkg/platform/tx"
)

// uniqueViolation is the SQLSTATE for a unique constraint violation, raised
// when two appends for the same entity race to the same version.
const uniqueViolation = "23505"

// maxAppendRetries bounds the version-race retry loop. Each retry re-reads
// the current max version, so contention resolves in one extra round trip
// per concurrent writer.
const maxAppendRetries = 5

// Store persists audit records in PostgreSQL. Version assignment is atomic:
// the insert computes 1 + MAX(version) for the entity in the same statement,
// and a unique index on (auditable_type, auditable_id, version) turns racing
// writers into a retried unique violation instead of a silent duplicate.
//
// Expected schema:
//
//	CREATE TABLE audit_records (
//	    id             UUID PRIMARY KEY,
//	    auditable_type TEXT NOT NULL,
//	    auditable_id   TEXT NOT NULL,
//	    owner_type     TEXT NOT NULL DEFAULT '',
//	    owner_id       TEXT NOT NULL DEFAULT '',
//	    actor_id       TEXT NOT NULL DEFAULT '',
//	    actor_type     TEXT NOT NULL DEFAULT '',
//	    action         TEXT NOT NULL,
//	    changes        JSONB NOT NULL DEFAULT '{}',
//	    comment        TEXT NOT NULL DEFAULT '',
//	    version        BIGINT NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    remote_address TEXT NOT NULL DEFAULT '',
//	    user_agent     TEXT NOT NULL DEFAULT '',
//	    request_id     TEXT NOT NULL DEFAULT '',
//	    UNIQUE (auditable_type, auditable_id, version)
//	);
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// querier joins a context transaction when the host opened one, so the
// entity mutation and the audit append commit or roll back together.
func (s *Store) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// AppendNext durably appends the record with the next per-entity version.
//
// Inside a context transaction every attempt runs under a savepoint: a
// version-race unique violation would otherwise abort the host's whole
// transaction, killing the retry loop and poisoning the host mutation even
// under a fail-open policy. Rolling back to the savepoint keeps the audit
// failure isolated to the audit statement.
func (s *Store) AppendNext(ctx context.Context, rec audit.Record) (audit.Record, error) {
	changes, err := json.Marshal(rec.Changes)
	if err != nil {
		return audit.Record{}, fmt.Errorf("marshal changes: %w", err)
	}

	query := `
		INSERT INTO audit_records (
			id, auditable_type, auditable_id, owner_type, owner_id,
			actor_id, actor_type, action, changes, comment,
			version, created_at, remote_address, user_agent, request_id
		)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		       COALESCE(MAX(version), 0) + 1, $11, $12, $13, $14
		FROM audit_records
		WHERE auditable_type = $2 AND auditable_id = $3
		RETURNING version
	`

	q := s.querier(ctx)
	tx, inTx := txcontext.From(ctx)
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		if inTx {
			if _, err = tx.ExecContext(ctx, "SAVEPOINT audit_append"); err != nil {
				break
			}
		}
		err = q.QueryRowContext(ctx, query,
			rec.ID,
			rec.AuditableType,
			rec.AuditableID,
			rec.OwnerType,
			rec.OwnerID,
			rec.Actor.ID,
			rec.Actor.Type,
			string(rec.Action),
			changes,
			rec.Comment,
			rec.CreatedAt,
			rec.RemoteAddress,
			rec.UserAgent,
			rec.RequestID,
		).Scan(&rec.Version)
		if err == nil {
			if inTx {
				if _, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT audit_append"); err != nil {
					break
				}
			}
			return rec, nil
		}
		if inTx {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT audit_append"); rbErr != nil {
				err = rbErr
				break
			}
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			continue
		}
		break
	}
	return audit.Record{}, fmt.Errorf("insert audit record: %w: %w", audit.ErrPersistenceFailure, err)
}

// RecordsFor returns all records for the entity, version ascending.
func (s *Store) RecordsFor(ctx context.Context, auditableType, auditableID string) ([]audit.Record, error) {
	query := `
		SELECT id, auditable_type, auditable_id, owner_type, owner_id,
		       actor_id, actor_type, action, changes, comment,
		       version, created_at, remote_address, user_agent, request_id
		FROM audit_records
		WHERE auditable_type = $1 AND auditable_id = $2
		ORDER BY version ASC
	`

	rows, err := s.querier(ctx).QueryContext(ctx, query, auditableType, auditableID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w: %w", audit.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record

	for rows.Next() {
		var (
			rec     audit.Record
			id      uuid.UUID
			action  string
			changes []byte
		)
		err := rows.Scan(
			&id,
			&rec.AuditableType,
			&rec.AuditableID,
			&rec.OwnerType,
			&rec.OwnerID,
			&rec.Actor.ID,
			&rec.Actor.Type,
			&action,
			&changes,
			&rec.Comment,
			&rec.Version,
			&rec.CreatedAt,
			&rec.RemoteAddress,
			&rec.UserAgent,
			&rec.RequestID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.ID = id
		rec.Action = audit.Action(action)
		if err := json.Unmarshal(changes, &rec.Changes); err != nil {
			return nil, fmt.Errorf("decode changes for record %s: %w", id, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
