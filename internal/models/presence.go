package models

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
	PresenceCustom  PresenceStatus = "custom"
)

// ValidPresenceStatus reports whether s is one of the statuses a client may
// set explicitly. "offline" is excluded: only the tracker flips a user
// offline, when their last connection closes.
func ValidPresenceStatus(s PresenceStatus) bool {
	switch s {
	case PresenceOnline, PresenceAway, PresenceCustom:
		return true
	}
	return false
}

type PresenceState struct {
	ProjectID   string         `json:"project_id"`
	UserID      string         `json:"user_id"`
	Status      PresenceStatus `json:"status"`
	CustomLabel string         `json:"custom_status,omitempty"`
	LastSeen    time.Time      `json:"last_seen"`
}
