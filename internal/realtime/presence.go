package realtime

import (
	"sync"
	"time"

	"realtimehub/internal/models"
)

type presenceKey struct {
	project string
	user    string
}

type presenceEntry struct {
	state models.PresenceState
	conns map[string]struct{}
}

// PresenceTracker maps (project, user) to a presence status plus last-seen
// timestamp. Liveness is reference-counted by connection id set, not a
// boolean: a user with several tabs open goes offline only when the last
// one closes. State transitions that actually change the visible status
// fire the registered change callback; repeats are suppressed.
type PresenceTracker struct {
	mu      sync.Mutex
	users   map[presenceKey]*presenceEntry
	changed func(models.PresenceState)
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{users: make(map[presenceKey]*presenceEntry)}
}

// OnChange registers the single presence-changed listener. Must be called
// before the tracker starts receiving events.
func (pt *PresenceTracker) OnChange(fn func(models.PresenceState)) {
	pt.changed = fn
}

func (pt *PresenceTracker) OnConnect(projectID, userID, connID string) {
	pt.mu.Lock()
	k := presenceKey{projectID, userID}
	entry, ok := pt.users[k]
	if !ok {
		entry = &presenceEntry{
			state: models.PresenceState{ProjectID: projectID, UserID: userID},
			conns: make(map[string]struct{}),
		}
		pt.users[k] = entry
	}
	entry.conns[connID] = struct{}{}

	var emit *models.PresenceState
	if len(entry.conns) == 1 {
		entry.state.Status = models.PresenceOnline
		entry.state.CustomLabel = ""
		entry.state.LastSeen = time.Now()
		st := entry.state
		emit = &st
	}
	pt.mu.Unlock()

	if emit != nil && pt.changed != nil {
		pt.changed(*emit)
	}
}

func (pt *PresenceTracker) OnDisconnect(projectID, userID, connID string) {
	pt.mu.Lock()
	k := presenceKey{projectID, userID}
	entry, ok := pt.users[k]
	if !ok {
		pt.mu.Unlock()
		return
	}
	delete(entry.conns, connID)

	var emit *models.PresenceState
	if len(entry.conns) == 0 && entry.state.Status != models.PresenceOffline {
		entry.state.Status = models.PresenceOffline
		entry.state.CustomLabel = ""
		entry.state.LastSeen = time.Now()
		st := entry.state
		emit = &st
	}
	pt.mu.Unlock()

	if emit != nil && pt.changed != nil {
		pt.changed(*emit)
	}
}

// SetStatus applies an explicit presence event. It does not touch the
// connection counter, and setting the status a user already has emits
// nothing, so rapid repeats never cause redundant broadcasts.
func (pt *PresenceTracker) SetStatus(projectID, userID string, status models.PresenceStatus, customLabel string) {
	pt.mu.Lock()
	k := presenceKey{projectID, userID}
	entry, ok := pt.users[k]
	if !ok || len(entry.conns) == 0 {
		// Presence events only come from live connections; one racing with
		// its own disconnect must not resurrect an offline user.
		pt.mu.Unlock()
		return
	}
	if entry.state.Status == status && entry.state.CustomLabel == customLabel {
		pt.mu.Unlock()
		return
	}
	entry.state.Status = status
	entry.state.CustomLabel = customLabel
	entry.state.LastSeen = time.Now()
	st := entry.state
	pt.mu.Unlock()

	if pt.changed != nil {
		pt.changed(st)
	}
}

func (pt *PresenceTracker) Get(projectID, userID string) (models.PresenceState, bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	entry, ok := pt.users[presenceKey{projectID, userID}]
	if !ok {
		return models.PresenceState{}, false
	}
	return entry.state, true
}

// Snapshot returns the presence state of every user ever observed in the
// project, offline users included.
func (pt *PresenceTracker) Snapshot(projectID string) []models.PresenceState {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	var states []models.PresenceState
	for k, entry := range pt.users {
		if k.project == projectID {
			states = append(states, entry.state)
		}
	}
	return states
}
