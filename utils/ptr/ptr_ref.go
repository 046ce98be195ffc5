// Package ptr provides helpers for optional values.
package ptr

// Ref returns the pointer of the value.
func Ref[T any](v T) *T {
	return &v
}

// Deref returns the value pointed by p, or def if p is nil.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
