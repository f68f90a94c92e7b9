package enums

import "fmt"

// SyncState tracks the cart synchronizer lifecycle.
type SyncState string

const (
	SyncStateIdle     SyncState = "IDLE"
	SyncStateFetching SyncState = "FETCHING"
	SyncStateMutating SyncState = "MUTATING"
)

var validSyncStates = []SyncState{
	SyncStateIdle,
	SyncStateFetching,
	SyncStateMutating,
}

// String implements fmt.Stringer.
func (s SyncState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncState.
func (s SyncState) IsValid() bool {
	for _, candidate := range validSyncStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSyncState converts raw input into a SyncState.
func ParseSyncState(value string) (SyncState, error) {
	for _, candidate := range validSyncStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync state %q", value)
}
