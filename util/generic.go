// util/generic.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

// Select returns a or b depending on sel; it's a poor man's ternary
// operator.
func Select[T any](sel bool, a, b T) T {
	if sel {
		return a
	}
	return b
}

// FilterSliceInPlace removes all elements for which pred returns false,
// reusing the slice's storage.
func FilterSliceInPlace[T any](s []T, pred func(T) bool) []T {
	out := s[:0]
	for _, v := range s {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}
