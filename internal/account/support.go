package account

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies timestamps for records whose store does not assign them.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// NewSystemClock reports wall-clock time in UTC.
func NewSystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}

// IDGenerator names reconciliation records.
type IDGenerator interface {
	NewID() string
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() string

func (f IDFunc) NewID() string { return f() }

// NewUUIDGenerator issues time-ordered record ids.
func NewUUIDGenerator() IDGenerator {
	return IDFunc(newRecordID)
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Ordering is lost but ids stay unique.
		return uuid.NewString()
	}
	return id.String()
}
