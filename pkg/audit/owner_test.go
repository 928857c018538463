package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOwner_EmptyChainIsSelf(t *testing.T) {
	book := newBook("b1", nil)

	ownerID, ownerType, err := resolveOwner(book, nil)
	require.NoError(t, err)
	assert.Equal(t, "b1", ownerID)
	assert.Equal(t, "book", ownerType)
}

func TestResolveOwner_WalksChainToFinalEntity(t *testing.T) {
	account := &testEntity{id: "acc1", typ: "account"}
	author := &testEntity{id: "a1", typ: "author", assocs: map[string]Auditable{"account": account}}
	book := &testEntity{id: "b1", typ: "book", assocs: map[string]Auditable{"author": author}}

	ownerID, ownerType, err := resolveOwner(book, []string{"author", "account"})
	require.NoError(t, err)
	assert.Equal(t, "acc1", ownerID)
	assert.Equal(t, "account", ownerType)
}

func TestResolveOwner_BrokenLink(t *testing.T) {
	author := &testEntity{id: "a1", typ: "author"} // no account relation
	book := &testEntity{id: "b1", typ: "book", assocs: map[string]Auditable{"author": author}}

	_, _, err := resolveOwner(book, []string{"author", "account"})
	require.ErrorIs(t, err, ErrBrokenOwnerChain)
	assert.Contains(t, err.Error(), "account")
}
