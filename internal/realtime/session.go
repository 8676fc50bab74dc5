package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"realtimehub/internal/models"
	"realtimehub/internal/services"
	"realtimehub/pkg/logger"

	"github.com/gorilla/websocket"
)

// MetadataStore is the slice of the external store the lifecycle needs:
// room metadata resolution before a join, and message persistence before a
// chat broadcast. Both may block; everything else in this package is
// in-memory only.
type MetadataStore interface {
	RoomByName(ctx context.Context, projectID, name string) (*models.Room, error)
	SaveMessage(ctx context.Context, projectID, roomID, userID, content string, metadata map[string]any) (*models.Message, error)
}

// Session drives one connection through its lifecycle: register and ack,
// serial event dispatch, cleanup on close. Events from one connection are
// handled strictly in arrival order; a state mutation is always committed
// before the broadcast it triggers.
type Session struct {
	hub   *Hub
	store MetadataStore
	conn  *Conn
}

func NewSession(hub *Hub, store MetadataStore, conn *Conn) *Session {
	return &Session{hub: hub, store: store, conn: conn}
}

// Run owns the transport until it closes: registers the connection, starts
// the write pump, then dispatches inbound events until the read side fails.
func (s *Session) Run(ctx context.Context, client *Client) {
	if err := s.Start(); err != nil {
		logger.Error("Error registering connection for user %s: %v", s.conn.UserID, err)
		client.Close()
		return
	}

	go client.WritePump()
	client.beginRead()

	for {
		data, err := client.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Read error on connection %s: %v", s.conn.ID, err)
			}
			break
		}
		s.handleRaw(ctx, data)
	}

	s.Shutdown()
	client.Close()
}

// Start admits the connection: registry, presence, then the "connected"
// acknowledgement carrying the assigned socket id.
func (s *Session) Start() error {
	if _, err := s.hub.Registry.Register(s.conn); err != nil {
		return err
	}
	s.hub.Presence.OnConnect(s.conn.ProjectID, s.conn.UserID, s.conn.ID)

	s.push(&models.ServerFrame{
		Type:     models.FrameConnected,
		SocketID: s.conn.ID,
		UserID:   s.conn.UserID,
	})
	logger.Info("Connection %s opened for user %s in project %s", s.conn.ID, s.conn.UserID, s.conn.ProjectID)
	return nil
}

// Shutdown removes the connection from every room it joined, notifies those
// rooms, and releases the user's presence reference. Idempotent: a second
// call finds the registry entry gone and does nothing.
func (s *Session) Shutdown() {
	rooms, ok := s.hub.Registry.Remove(s.conn.ID)
	if !ok {
		return
	}

	for roomID, roomName := range rooms {
		s.hub.Rooms.Leave(roomID, s.conn.ID)
		s.conn.trackLeave(roomID)
		s.hub.Broadcast.ToRoom(roomID, &models.ServerFrame{
			Type:   models.FrameUserLeft,
			UserID: s.conn.UserID,
			Room:   roomName,
		}, s.conn.ID)
	}

	s.hub.Presence.OnDisconnect(s.conn.ProjectID, s.conn.UserID, s.conn.ID)
	logger.Info("Connection %s closed for user %s", s.conn.ID, s.conn.UserID)
}

// handleRaw parses one inbound frame and dispatches it. A frame that fails
// to parse, or names an unknown type, costs the sender one error reply and
// nothing else.
func (s *Session) handleRaw(ctx context.Context, data []byte) {
	var ev models.ClientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.sendError("invalid payload")
		return
	}

	switch ev.Type {
	case models.EventJoin:
		s.handleJoin(ctx, &ev)
	case models.EventLeave:
		s.handleLeave(&ev)
	case models.EventMessage:
		s.handleMessage(ctx, &ev)
	case models.EventPresence:
		s.handlePresence(&ev)
	case models.EventTyping:
		s.handleTyping(&ev)
	default:
		s.sendError("unknown event type: " + ev.Type)
	}
}

func (s *Session) handleJoin(ctx context.Context, ev *models.ClientEvent) {
	room, err := s.store.RoomByName(ctx, s.conn.ProjectID, ev.Room)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			s.sendError("room not found: " + ev.Room)
		} else {
			logger.Error("Error resolving room %q: %v", ev.Room, err)
			s.sendError("failed to resolve room")
		}
		return
	}

	s.hub.Rooms.Join(room.ID, s.conn.ID)
	s.conn.trackJoin(room.ID, room.Name)

	s.push(&models.ServerFrame{
		Type:   models.FrameJoined,
		Room:   room.Name,
		RoomID: room.ID,
	})
	s.hub.Broadcast.ToRoom(room.ID, &models.ServerFrame{
		Type:   models.FrameUserJoined,
		UserID: s.conn.UserID,
		Room:   room.Name,
	}, s.conn.ID)
}

func (s *Session) handleLeave(ev *models.ClientEvent) {
	roomID, ok := s.conn.roomIDByName(ev.Room)
	if !ok {
		// Not a member; leave is idempotent, so no error and no broadcast.
		return
	}

	s.hub.Rooms.Leave(roomID, s.conn.ID)
	s.conn.trackLeave(roomID)

	s.hub.Broadcast.ToRoom(roomID, &models.ServerFrame{
		Type:   models.FrameUserLeft,
		UserID: s.conn.UserID,
		Room:   ev.Room,
	}, s.conn.ID)
}

func (s *Session) handleMessage(ctx context.Context, ev *models.ClientEvent) {
	roomID, ok := s.conn.roomIDByName(ev.Room)
	if !ok {
		// Benign race with a concurrent leave or disconnect; drop silently.
		return
	}

	msg, err := s.store.SaveMessage(ctx, s.conn.ProjectID, roomID, s.conn.UserID, ev.Content, ev.Metadata)
	if err != nil {
		logger.Error("Error saving message from %s to room %s: %v", s.conn.UserID, roomID, err)
		s.sendError("failed to persist message")
		return
	}

	// No self-exclusion: the sender sees its own message echoed back with
	// the stored id and timestamp, confirming persistence.
	s.hub.Broadcast.ToRoom(roomID, &models.ServerFrame{
		Type:      models.FrameMessage,
		ID:        msg.ID,
		Room:      ev.Room,
		UserID:    s.conn.UserID,
		Content:   ev.Content,
		Metadata:  ev.Metadata,
		Timestamp: msg.CreatedAt.Format(time.RFC3339),
	}, "")
}

func (s *Session) handlePresence(ev *models.ClientEvent) {
	if !models.ValidPresenceStatus(ev.Status) {
		s.sendError("invalid presence status: " + string(ev.Status))
		return
	}
	// The tracker's change listener handles the project-wide broadcast, and
	// suppresses it when the status did not actually change.
	s.hub.Presence.SetStatus(s.conn.ProjectID, s.conn.UserID, ev.Status, ev.CustomStatus)
}

func (s *Session) handleTyping(ev *models.ClientEvent) {
	roomID, ok := s.conn.roomIDByName(ev.Room)
	if !ok {
		return
	}

	isTyping := ev.IsTyping
	s.hub.Broadcast.ToRoom(roomID, &models.ServerFrame{
		Type:     models.FrameTyping,
		UserID:   s.conn.UserID,
		Room:     ev.Room,
		IsTyping: &isTyping,
	}, s.conn.ID)
}

func (s *Session) sendError(message string) {
	s.push(&models.ServerFrame{Type: models.FrameError, Message: message})
}

func (s *Session) push(frame *models.ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("Error marshaling %s frame: %v", frame.Type, err)
		return
	}
	if err := s.conn.Push(data); err != nil {
		logger.Debug("Dropping %s frame for connection %s: %v", frame.Type, s.conn.ID, err)
	}
}
