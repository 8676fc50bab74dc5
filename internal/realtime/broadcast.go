package realtime

import (
	"encoding/json"

	"realtimehub/internal/models"
	"realtimehub/pkg/logger"
)

// Broadcaster fans a frame out to every live connection in a room or a
// project. The frame is serialized exactly once per call; delivery is a
// best-effort non-blocking push, and a recipient whose transport refuses
// the frame is skipped without affecting the rest.
type Broadcaster struct {
	registry *Registry
	rooms    *RoomIndex
}

func NewBroadcaster(registry *Registry, rooms *RoomIndex) *Broadcaster {
	return &Broadcaster{registry: registry, rooms: rooms}
}

// ToRoom delivers the frame to every member of the room except, when
// excludeConnID is non-empty, the sender itself. Membership is snapshotted
// before delivery, so a concurrent join or leave neither blocks nor
// corrupts the fan-out.
func (b *Broadcaster) ToRoom(roomID string, frame *models.ServerFrame, excludeConnID string) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Error marshaling %s frame for room %s: %v", frame.Type, roomID, err)
		return
	}

	for _, id := range b.rooms.Members(roomID) {
		if id == excludeConnID {
			continue
		}
		c, ok := b.registry.Get(id)
		if !ok {
			// Left the registry between snapshot and delivery.
			continue
		}
		if err := c.Push(data); err != nil {
			logger.Debug("Dropping %s frame for connection %s: %v", frame.Type, id, err)
		}
	}
}

// ToProject delivers the frame to every live connection in the project.
// Used for presence fan-out; no exclusion semantics.
func (b *Broadcaster) ToProject(projectID string, frame *models.ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Error marshaling %s frame for project %s: %v", frame.Type, projectID, err)
		return
	}

	b.registry.ByProject(projectID, func(c *Conn) bool {
		if err := c.Push(data); err != nil {
			logger.Debug("Dropping %s frame for connection %s: %v", frame.Type, c.ID, err)
		}
		return true
	})
}
