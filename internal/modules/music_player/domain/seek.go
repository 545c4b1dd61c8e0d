package domain

import (
	"strconv"
	"strings"
	"time"
)

// ParseSeekOffset parses a relative seek argument such as "+30" or "-15".
// The sign is mandatory so that relative input is never mistaken for an
// absolute position.
func ParseSeekOffset(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if len(input) < 2 || (input[0] != '+' && input[0] != '-') {
		return 0, ErrBadFormat
	}

	seconds, err := strconv.Atoi(input)
	if err != nil {
		return 0, ErrBadFormat
	}

	return time.Duration(seconds) * time.Second, nil
}

// SeekTarget computes the absolute position reached by moving delta from
// elapsed. The result is clamped at zero. A target past the end of a track
// with a known duration fails with ErrOutOfRange.
func SeekTarget(elapsed, delta, duration time.Duration) (time.Duration, error) {
	target := max(0, elapsed+delta)
	if duration > 0 && target > duration {
		return 0, ErrOutOfRange
	}
	return target, nil
}
