package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chronicle/pkg/audit"
)

const (
	// Redis key prefixes, per entity.
	versionKeyPrefix = "audit:ver:"
	trailKeyPrefix   = "audit:trail:"
)

// appendScript assigns the next version and stores the record in one atomic
// script: INCR the entity's version counter, stamp the version into the
// payload, and ZADD it with the version as score so range reads come back in
// version order. Redis runs scripts serially, so concurrent appends for the
// same entity cannot race to a version number.
var appendScript = redis.NewScript(`
local version = redis.call('INCR', KEYS[1])
local rec = cjson.decode(ARGV[1])
rec['version'] = version
redis.call('ZADD', KEYS[2], version, cjson.encode(rec))
return version
`)

// Store persists audit trails in Redis. Recommended for deployments that
// already run Redis and do not need SQL-transactional coupling with the
// entity mutation; fail-closed policies still see append errors.
type Store struct {
	client *redis.Client
}

// New creates a Redis-backed audit store. The client lifecycle is managed by
// the caller.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// recordPayload is the JSON form stored in the trail zset.
type recordPayload struct {
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
	CreatedAt     string        `json:"created_at"`
	RemoteAddress string        `json:"remote_address,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
	RequestID     string        `json:"request_id,omitempty"`
}

func entityKeys(auditableType, auditableID string) (versionKey, trailKey string) {
	suffix := auditableType + ":" + auditableID
	return versionKeyPrefix + suffix, trailKeyPrefix + suffix
}

// AppendNext durably appends the record with the next per-entity version.
func (s *Store) AppendNext(ctx context.Context, rec audit.Record) (audit.Record, error) {
	payload := recordPayload{
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
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339Nano),
		RemoteAddress: rec.RemoteAddress,
		UserAgent:     rec.UserAgent,
		RequestID:     rec.RequestID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return audit.Record{}, fmt.Errorf("marshal audit record: %w", err)
	}

	versionKey, trailKey := entityKeys(rec.AuditableType, rec.AuditableID)
	version, err := appendScript.Run(ctx, s.client, []string{versionKey, trailKey}, data).Int64()
	if err != nil {
		return audit.Record{}, fmt.Errorf("append audit record: %w: %w", audit.ErrPersistenceFailure, err)
	}
	rec.Version = version
	return rec, nil
}

// RecordsFor returns all records for the entity, version ascending.
func (s *Store) RecordsFor(ctx context.Context, auditableType, auditableID string) ([]audit.Record, error) {
	_, trailKey := entityKeys(auditableType, auditableID)

	members, err := s.client.ZRange(ctx, trailKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range audit trail: %w: %w", audit.ErrPersistenceFailure, err)
	}

	records := make([]audit.Record, 0, len(members))
	for _, member := range members {
		var payload recordPayload
		if err := json.Unmarshal([]byte(member), &payload); err != nil {
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		rec, err := payload.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p recordPayload) toRecord() (audit.Record, error) {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return audit.Record{}, fmt.Errorf("parse audit record id %q: %w", p.ID, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return audit.Record{}, fmt.Errorf("parse audit record timestamp %q: %w", p.CreatedAt, err)
	}
	return audit.Record{
		ID:            id,
		AuditableType: p.AuditableType,
		AuditableID:   p.AuditableID,
		OwnerType:     p.OwnerType,
		OwnerID:       p.OwnerID,
		Actor:         audit.Actor{ID: p.ActorID, Type: p.ActorType},
		Action:        audit.Action(p.Action),
		Changes:       p.Changes,
		Comment:       p.Comment,
		Version:       p.Version,
		CreatedAt:     createdAt,
		RemoteAddress: p.RemoteAddress,
		UserAgent:     p.UserAgent,
		RequestID:     p.RequestID,
	}, nil
}
