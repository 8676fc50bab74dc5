package services

import (
	"context"
	"errors"
	"fmt"

	"realtimehub/internal/database"
	"realtimehub/internal/models"

	"github.com/jackc/pgx/v5"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomService struct {
	db database.Store
}

func NewRoomService(db database.Store) *RoomService {
	return &RoomService{db: db}
}

// CreateProject creates a project together with its first API key.
func (s *RoomService) CreateProject(ctx context.Context, req *models.CreateProjectRequest) (*models.CreateProjectResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	project, err := s.db.CreateProject(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	key, err := s.db.CreateAPIKey(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("project created but API key issue failed: %w", err)
	}

	return &models.CreateProjectResponse{
		Project: *project,
		APIKey:  key.Key,
	}, nil
}

func (s *RoomService) CreateRoom(ctx context.Context, projectID string, req *models.CreateRoomRequest) (*models.Room, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}
	if req.Type == "" {
		req.Type = models.RoomPublic
	}
	if req.Type != models.RoomPublic && req.Type != models.RoomPrivate {
		return nil, fmt.Errorf("invalid room type: %s", req.Type)
	}

	if _, err := s.db.GetProject(ctx, projectID); err != nil {
		return nil, fmt.Errorf("project not found")
	}

	return s.db.CreateRoom(ctx, projectID, req)
}

func (s *RoomService) ListRooms(ctx context.Context, projectID string) ([]*models.Room, error) {
	return s.db.ListRooms(ctx, projectID)
}

// RoomByName resolves room metadata for the join path. The max-member bound
// on the returned room is advisory; the live membership index does not
// enforce it.
func (s *RoomService) RoomByName(ctx context.Context, projectID, name string) (*models.Room, error) {
	room, err := s.db.GetRoomByName(ctx, projectID, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *RoomService) SaveMessage(ctx context.Context, projectID, roomID, userID, content string, metadata map[string]any) (*models.Message, error) {
	return s.db.SaveMessage(ctx, projectID, roomID, userID, content, metadata)
}
