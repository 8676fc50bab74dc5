package realtime

// Hub bundles the shared in-memory state one process owns: the connection
// registry, the live room membership index, the presence tracker, and the
// broadcast engine wired over the first two.
type Hub struct {
	Registry  *Registry
	Rooms     *RoomIndex
	Presence  *PresenceTracker
	Broadcast *Broadcaster
}

func NewHub() *Hub {
	registry := NewRegistry()
	rooms := NewRoomIndex()
	return &Hub{
		Registry:  registry,
		Rooms:     rooms,
		Presence:  NewPresenceTracker(),
		Broadcast: NewBroadcaster(registry, rooms),
	}
}
