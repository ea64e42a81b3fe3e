package models

import "time"

// Classification is the liveness tier derived from age and status.
type Classification string

const (
	ClassActive Classification = "active"
	ClassStale  Classification = "stale"
	ClassZombie Classification = "zombie"
	ClassEnded  Classification = "ended"
)

// Rank orders classifications by severity: active < stale < zombie < ended.
func (c Classification) Rank() int {
	switch c {
	case ClassActive:
		return 0
	case ClassStale:
		return 1
	case ClassZombie:
		return 2
	case ClassEnded:
		return 3
	}
	return -1
}

// Removable reports whether cleanup deletes a session in this tier.
func (c Classification) Removable() bool {
	return c == ClassZombie || c == ClassEnded
}

// Classify is a pure function of age and the stored status. An explicit
// end wins; otherwise age beyond zombie, then beyond stale. Negative ages
// from clock skew count as active.
func Classify(age time.Duration, status Status, stale, zombie time.Duration) Classification {
	switch {
	case status == StatusEnded:
		return ClassEnded
	case age > zombie:
		return ClassZombie
	case age > stale:
		return ClassStale
	default:
		return ClassActive
	}
}
