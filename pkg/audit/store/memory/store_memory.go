package memory

import (
	"context"
	"sync"

	"chronicle/pkg/audit"
)

type entityKey struct {
	auditableType string
	auditableID   string
}

// InMemoryStore keeps audit trails in process memory. It is the default
// backend for tests and single-process development; version assignment is
// serialized by the store mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[entityKey][]audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[entityKey][]audit.Record)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[entityKey][]audit.Record)
}

func (s *InMemoryStore) AppendNext(_ context.Context, rec audit.Record) (audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entityKey{auditableType: rec.AuditableType, auditableID: rec.AuditableID}
	rec.Version = int64(len(s.records[key])) + 1
	s.records[key] = append(s.records[key], rec)
	return rec, nil
}

func (s *InMemoryStore) RecordsFor(_ context.Context, auditableType, auditableID string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := entityKey{auditableType: auditableType, auditableID: auditableID}
	return append([]audit.Record{}, s.records[key]...), nil
}
