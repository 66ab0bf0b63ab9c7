package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionID identifies one analysis run. All diagnostics recorded through
// a collector share its session ID.
// String alias enables type safety while maintaining JSON string serialization.
type SessionID string

// DiagnosticID identifies one recorded diagnostic entry.
// String alias enables type safety while maintaining JSON string serialization.
type DiagnosticID string

// NewSessionID generates a UUIDv7 session identifier.
// Time-ordered IDs keep a run's diagnostics adjacent when stored.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// NewDiagnosticID generates a UUIDv7 diagnostic identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewDiagnosticID() DiagnosticID {
	return DiagnosticID(uuid.Must(uuid.NewV7()).String())
}

// ParseSessionID validates and converts a string to SessionID.
// Rejects malformed UUIDs to prevent invalid IDs from entering the system.
func ParseSessionID(s string) (SessionID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return SessionID(s), nil
}

// SessionIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Enables time-based cache eviction without extra bookkeeping.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func SessionIDTime(id SessionID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
