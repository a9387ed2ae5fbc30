package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "pglocktrace:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// OIDKey generates a prefixed key for a resolved OID.
func (k *ScopedKeyer) OIDKey(database string, oid uint32) string {
	return k.prefix + k.inner.OIDKey(database, oid)
}

// CatalogKey generates a prefixed key for a catalog snapshot.
func (k *ScopedKeyer) CatalogKey(database string) string {
	return k.prefix + k.inner.CatalogKey(database)
}
