package adaptor

import "github.com/opendocfeed/adaptor/internal/assert"

// DocId is an opaque, repository-scoped identifier for a single document.
// Equality is by string value. A DocId is never empty.
type DocId struct {
	id string
}

// NewDocId wraps a non-empty string as a DocId.
//
// Empty strings are rejected because every operation that carries a DocId
// through the push pipeline or the document handler assumes a non-empty
// identifier; an empty DocId would encode to the base path itself and be
// indistinguishable from "no document."
func NewDocId(id string) (DocId, error) {
	if id == "" {
		return DocId{}, ErrEmptyDocId
	}
	d := DocId{id: id}
	assert.Invariant(!d.IsZero(), "DocId must never be zero after successful construction")
	return d, nil
}

// String returns the raw identifier.
func (d DocId) String() string {
	return d.id
}

// IsZero reports whether d is the zero value (never produced by NewDocId).
func (d DocId) IsZero() bool {
	return d.id == ""
}
