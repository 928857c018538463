package audit

// Test fixtures shared across the package tests: a minimal entity tree
// (book -> author -> account) exercising attributes and association chains.

type testEntity struct {
	id     string
	typ    string
	attrs  map[string]any
	assocs map[string]Auditable
}

func (e *testEntity) AuditableID() string                 { return e.id }
func (e *testEntity) AuditableType() string               { return e.typ }
func (e *testEntity) AuditableAttributes() map[string]any { return e.attrs }

func (e *testEntity) AuditableAssociation(name string) Auditable {
	if e.assocs == nil {
		return nil
	}
	return e.assocs[name]
}

func newBook(id string, attrs map[string]any) *testEntity {
	return &testEntity{id: id, typ: "book", attrs: attrs}
}
