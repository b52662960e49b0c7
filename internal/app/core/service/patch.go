package service

import "time"

// Set copies *v into dst when v is non-nil. Partial update requests use nil
// to mean "leave unchanged".
func Set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// SetPtr replaces *dst with a copy of v when v is non-nil.
func SetPtr[T any](dst **T, v *T) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

// SetTime is SetPtr for timestamps, normalised to UTC.
func SetTime(dst **time.Time, v *time.Time) {
	if v != nil {
		t := v.UTC()
		*dst = &t
	}
}
