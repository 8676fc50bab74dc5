package models

// Client -> server event types.
const (
	EventJoin     = "join"
	EventLeave    = "leave"
	EventMessage  = "message"
	EventPresence = "presence"
	EventTyping   = "typing"
)

// Server -> client frame types.
const (
	FrameConnected  = "connected"
	FrameJoined     = "joined"
	FrameUserJoined = "user_joined"
	FrameUserLeft   = "user_left"
	FrameMessage    = "message"
	FramePresence   = "presence"
	FrameTyping     = "typing"
	FrameError      = "error"
)

// ClientEvent is the inbound wire envelope. Every client event parses into
// this one struct; Type selects which fields are meaningful. Validation
// happens at the dispatch boundary, not here.
type ClientEvent struct {
	Type         string         `json:"type"`
	Room         string         `json:"room,omitempty"`
	Content      string         `json:"content,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Status       PresenceStatus `json:"status,omitempty"`
	CustomStatus string         `json:"customStatus,omitempty"`
	IsTyping     bool           `json:"isTyping,omitempty"`
}

// ServerFrame is the outbound wire envelope, shared by all frame types.
type ServerFrame struct {
	Type         string         `json:"type"`
	SocketID     string         `json:"socketId,omitempty"`
	UserID       string         `json:"userId,omitempty"`
	Room         string         `json:"room,omitempty"`
	RoomID       string         `json:"roomId,omitempty"`
	ID           string         `json:"id,omitempty"`
	Content      string         `json:"content,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	Status       PresenceStatus `json:"status,omitempty"`
	CustomStatus string         `json:"customStatus,omitempty"`
	IsTyping     *bool          `json:"isTyping,omitempty"`
	Message      string         `json:"message,omitempty"`
}
