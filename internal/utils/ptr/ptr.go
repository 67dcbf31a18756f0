// Package ptr builds pointers to literals for the optional fields of
// source items.
package ptr

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
