// Package utils holds small helpers for the optional (pointer) fields that
// the platform API uses for nullable JSON values.
package utils

func Ptr[T any](v T) *T {
	return &v
}

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}
