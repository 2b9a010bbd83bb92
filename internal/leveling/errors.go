package leveling

import "errors"

var (
	// ErrDuplicateThreshold is returned when a level definition's required
	// points collide with a different rank in the same guild.
	ErrDuplicateThreshold = errors.New("another level already uses this points threshold")
)
