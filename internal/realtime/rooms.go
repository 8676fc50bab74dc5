package realtime

import "sync"

// RoomIndex maps a room id to the set of connection ids currently joined.
// It holds back-references only, never connection objects; resolving an id
// to a live connection goes through the Registry. Membership is a set: join
// and leave are idempotent, and empty rooms are evicted so the index never
// outgrows the set of rooms actually in use. Room metadata lives in the
// external store; this projection is rebuilt from join events.
type RoomIndex struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{rooms: make(map[string]map[string]struct{})}
}

func (ri *RoomIndex) Join(roomID, connID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	if ri.rooms[roomID] == nil {
		ri.rooms[roomID] = make(map[string]struct{})
	}
	ri.rooms[roomID][connID] = struct{}{}
}

func (ri *RoomIndex) Leave(roomID, connID string) {
	ri.mu.Lock()
	defer ri.mu.Unlock()

	members, ok := ri.rooms[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(ri.rooms, roomID)
	}
}

// Members returns a copy of the room's membership; the broadcast engine
// iterates it while sessions may be mutating the underlying set.
func (ri *RoomIndex) Members(roomID string) []string {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	members := ri.rooms[roomID]
	if len(members) == 0 {
		return nil
	}
	result := make([]string, 0, len(members))
	for id := range members {
		result = append(result, id)
	}
	return result
}

func (ri *RoomIndex) MemberCount(roomID string) int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.rooms[roomID])
}

// ActiveRooms reports how many rooms currently have at least one member.
func (ri *RoomIndex) ActiveRooms() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.rooms)
}
