package models

import "time"

type RoomType string

const (
	RoomPublic  RoomType = "public"
	RoomPrivate RoomType = "private"
)

type Room struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Name       string    `json:"name"`
	Type       RoomType  `json:"type"`
	MaxMembers int       `json:"max_members"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomStatus is a Room augmented with the live connection count for the
// admin listing endpoint.
type RoomStatus struct {
	Room
	ActiveConnections int `json:"active_connections"`
}

type Message struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	RoomID    string         `json:"room_id"`
	UserID    string         `json:"user_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type CreateRoomRequest struct {
	Name       string   `json:"name"`
	Type       RoomType `json:"type"`
	MaxMembers int      `json:"max_members"`
}
