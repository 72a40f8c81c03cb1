package utils

import "strings"

func ToPtr[T any](t T) *T {
	return &t
}

func FromPtr[T any](t *T) T {
	var zero T
	if t == nil {
		return zero
	}
	return *t
}

// ToPtrNil returns nil for blank strings so optional text columns stay NULL.
func ToPtrNil(t string) *string {
	if strings.TrimSpace(t) == "" {
		return nil
	}
	return &t
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
