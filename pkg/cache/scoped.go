package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several conversion graphs share one cache backend
// (e.g., a server hosting per-tenant converter sets).
//
// Example usage:
//
//	tenantKeyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:abc123:")
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

// PathKey generates a prefixed key for a path query.
func (k *ScopedKeyer) PathKey(graphVersion uint64, opts PathKeyOpts) string {
	return k.prefix + k.inner.PathKey(graphVersion, opts)
}

// RenderKey generates a prefixed key for rendered artwork.
func (k *ScopedKeyer) RenderKey(graphVersion uint64, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphVersion, opts)
}
