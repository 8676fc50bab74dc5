package handlers

import (
	"encoding/json"
	"net/http"

	"realtimehub/internal/models"
	"realtimehub/internal/realtime"
	"realtimehub/internal/services"
	"realtimehub/pkg/logger"

	"github.com/go-chi/chi/v5"
)

// AdminHandlers is the administrative HTTP surface. Its stats and presence
// endpoints are the only place HTTP reads the live core state, and they do
// so through the same narrow contracts the sessions use.
type AdminHandlers struct {
	roomService *services.RoomService
	hub         *realtime.Hub
}

func NewAdminHandlers(roomService *services.RoomService, hub *realtime.Hub) *AdminHandlers {
	return &AdminHandlers{
		roomService: roomService,
		hub:         hub,
	}
}

func (h *AdminHandlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	response, err := h.roomService.CreateProject(r.Context(), &req)
	if err != nil {
		logger.Error("Create project error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (h *AdminHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), projectID, &req)
	if err != nil {
		logger.Error("Create room error: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(room)
}

func (h *AdminHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	rooms, err := h.roomService.ListRooms(r.Context(), projectID)
	if err != nil {
		logger.Error("List rooms error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	statuses := make([]models.RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		statuses = append(statuses, models.RoomStatus{
			Room:              *room,
			ActiveConnections: h.hub.Rooms.MemberCount(room.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

func (h *AdminHandlers) GetPresence(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	states := h.hub.Presence.Snapshot(projectID)
	if states == nil {
		states = []models.PresenceState{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(states)
}

func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]int{
		"connections":  h.hub.Registry.Count(),
		"active_rooms": h.hub.Rooms.ActiveRooms(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
