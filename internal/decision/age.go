package decision

import (
	"fmt"
	"time"
)

// eligibleAge is the minimum age for an eligible decision.
const eligibleAge = 18

// AgeAt returns the calendar age at the reference time: full years elapsed,
// decremented by one when the reference month/day precedes the birth
// month/day. No timezone normalization beyond what the parsed date carries.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// ParseDateOfBirth accepts the date-only form used by submissions, falling
// back to RFC 3339 for callers that send full timestamps.
func ParseDateOfBirth(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date of birth: %w", err)
	}
	return t, nil
}
