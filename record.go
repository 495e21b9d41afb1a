package adaptor

import "time"

// InheritanceRule governs how an Acl combines its own permit/deny sets with
// its parent's, when a parent DocId is set.
type InheritanceRule int

const (
	// LeafDominates: the leaf's own decision wins outright; the parent is
	// consulted only if the leaf has no rule on the requested user/group.
	LeafDominates InheritanceRule = iota
	// ParentDominates: the parent's decision wins outright over the leaf's.
	ParentDominates
	// AndBothPermit: access requires both leaf and parent to permit.
	AndBothPermit
	// OrEitherPermit: access is granted if either leaf or parent permits.
	OrEitherPermit
)

// Acl is a structured authorization descriptor. Empty sets mean "no rule on
// this dimension" rather than "deny everyone." If Parent is set, it must be
// resolvable by the DocId codec to a URL; user and group names are opaque
// strings compared by value.
type Acl struct {
	PermitUsers  []string
	DenyUsers    []string
	PermitGroups []string
	DenyGroups   []string

	// Parent, if non-nil, is the DocId this Acl inherits from.
	Parent *DocId
	Rule   InheritanceRule
}

// Metadata is an unordered set of (key, value) pairs, both non-null
// strings, emitted as HTTP response headers on content responses.
type Metadata map[string]string

// Clone returns a defensive copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// DocIdRecord describes one document identifier to push to the Appliance.
// DocId is the only mandatory field.
type DocIdRecord struct {
	DocId DocId

	// LastModified is nil when unknown.
	LastModified *time.Time

	// Delete marks the record for removal from the Appliance's index.
	Delete bool

	// CrawlImmediately hints that the Appliance should fetch this document
	// ahead of its normal crawl cadence.
	CrawlImmediately bool

	// Lock hints that the Appliance should not evict this document under
	// index pressure.
	Lock bool

	// ResultLink, if non-nil, overrides the URL the Appliance displays for
	// this result (the content is still fetched from the encoded DocId
	// URL).
	ResultLink *string

	Metadata Metadata
}

// NamedResource is a DocId carrying only ACL metadata, no content. It is
// pushed to propagate ACL inheritance roots independent of content pushes.
type NamedResource struct {
	DocId DocId
	Acl   Acl
}
