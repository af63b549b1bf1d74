package ports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruckert/canto/internal/domain"
	"github.com/ruckert/canto/internal/ports"
)

// The persisted entities satisfy the store contract.
var (
	_ ports.Document = (*domain.Album)(nil)
	_ ports.Document = (*domain.Track)(nil)
	_ ports.Document = (*domain.Playlist)(nil)
)

func TestDocumentContract(t *testing.T) {
	var doc ports.Document = &domain.Album{Entity: domain.Entity{ID: "a-1", Rev: "1-abc"}}

	assert.Equal(t, "a-1", doc.DocID())
	assert.Equal(t, "1-abc", doc.DocRev())
	assert.False(t, doc.IsDeleted())

	doc.SetRev("2-def")
	doc.MarkDeleted()
	assert.Equal(t, "2-def", doc.DocRev())
	assert.True(t, doc.IsDeleted())
}
