package database

import (
	"context"

	"realtimehub/internal/models"
)

type AdminRepository interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, email, password string) (*models.Admin, error)
	CountAdmins(ctx context.Context) (int, error)
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, name string) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

type APIKeyRepository interface {
	CreateAPIKey(ctx context.Context, projectID string) (*models.APIKey, error)
	GetAPIKey(ctx context.Context, key string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, key string) error
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, projectID string, req *models.CreateRoomRequest) (*models.Room, error)
	GetRoomByName(ctx context.Context, projectID, name string) (*models.Room, error)
	ListRooms(ctx context.Context, projectID string) ([]*models.Room, error)
}

type MessageRepository interface {
	SaveMessage(ctx context.Context, projectID, roomID, userID, content string, metadata map[string]any) (*models.Message, error)
}

type PresenceRepository interface {
	UpsertPresence(ctx context.Context, state models.PresenceState) error
}

type Store interface {
	AdminRepository
	ProjectRepository
	APIKeyRepository
	RoomRepository
	MessageRepository
	PresenceRepository
	Close() error
}
