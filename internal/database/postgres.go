package database

import (
	"context"
	"fmt"

	"realtimehub/internal/models"
	"realtimehub/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// Admin Repository Implementation
func (db *PostgresDB) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := `SELECT id, email, password_hash, created_at FROM admins WHERE email = $1`

	admin := &models.Admin{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&admin.ID, &admin.Email, &admin.PasswordHash, &admin.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return admin, nil
}

func (db *PostgresDB) CreateAdmin(ctx context.Context, email, password string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO admins (id, email, password_hash, created_at)
		VALUES (gen_random_uuid(), $1, $2, NOW())
		RETURNING id, email, created_at`

	admin := &models.Admin{PasswordHash: string(hash)}
	err = db.pool.QueryRow(ctx, query, email, string(hash)).Scan(
		&admin.ID, &admin.Email, &admin.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return admin, nil
}

func (db *PostgresDB) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

// Project Repository Implementation
func (db *PostgresDB) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	query := `
		INSERT INTO projects (id, name, created_at)
		VALUES (gen_random_uuid(), $1, NOW())
		RETURNING id, name, created_at`

	project := &models.Project{}
	err := db.pool.QueryRow(ctx, query, name).Scan(
		&project.ID, &project.Name, &project.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

func (db *PostgresDB) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT id, name, created_at FROM projects WHERE id = $1`

	project := &models.Project{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&project.ID, &project.Name, &project.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return project, nil
}

// API Key Repository Implementation
func (db *PostgresDB) CreateAPIKey(ctx context.Context, projectID string) (*models.APIKey, error) {
	query := `
		INSERT INTO api_keys (key, project_id, active, created_at, last_used)
		VALUES (gen_random_uuid(), $1, true, NOW(), NOW())
		RETURNING key, project_id, active, created_at, last_used`

	k := &models.APIKey{}
	err := db.pool.QueryRow(ctx, query, projectID).Scan(
		&k.Key, &k.ProjectID, &k.Active, &k.CreatedAt, &k.LastUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return k, nil
}

func (db *PostgresDB) GetAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	query := `SELECT key, project_id, active, created_at, last_used FROM api_keys WHERE key = $1`

	k := &models.APIKey{}
	err := db.pool.QueryRow(ctx, query, key).Scan(
		&k.Key, &k.ProjectID, &k.Active, &k.CreatedAt, &k.LastUsed,
	)
	if err != nil {
		return nil, err
	}

	return k, nil
}

func (db *PostgresDB) TouchAPIKey(ctx context.Context, key string) error {
	_, err := db.pool.Exec(ctx, `UPDATE api_keys SET last_used = NOW() WHERE key = $1`, key)
	return err
}

// Room Repository Implementation
func (db *PostgresDB) CreateRoom(ctx context.Context, projectID string, req *models.CreateRoomRequest) (*models.Room, error) {
	query := `
		INSERT INTO rooms (id, project_id, name, room_type, max_members, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, NOW())
		RETURNING id, project_id, name, room_type, max_members, created_at`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, projectID, req.Name, req.Type, req.MaxMembers).Scan(
		&room.ID, &room.ProjectID, &room.Name, &room.Type, &room.MaxMembers, &room.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	return room, nil
}

func (db *PostgresDB) GetRoomByName(ctx context.Context, projectID, name string) (*models.Room, error) {
	query := `
		SELECT id, project_id, name, room_type, max_members, created_at
		FROM rooms WHERE project_id = $1 AND name = $2`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, projectID, name).Scan(
		&room.ID, &room.ProjectID, &room.Name, &room.Type, &room.MaxMembers, &room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return room, nil
}

func (db *PostgresDB) ListRooms(ctx context.Context, projectID string) ([]*models.Room, error) {
	query := `
		SELECT id, project_id, name, room_type, max_members, created_at
		FROM rooms WHERE project_id = $1 ORDER BY created_at`

	rows, err := db.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room := &models.Room{}
		if err := rows.Scan(
			&room.ID, &room.ProjectID, &room.Name, &room.Type, &room.MaxMembers, &room.CreatedAt,
		); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// Message Repository Implementation
func (db *PostgresDB) SaveMessage(ctx context.Context, projectID, roomID, userID, content string, metadata map[string]any) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, project_id, room_id, user_id, content, metadata, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`

	msg := &models.Message{
		ProjectID: projectID,
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		Metadata:  metadata,
	}
	err := db.pool.QueryRow(ctx, query, projectID, roomID, userID, content, metadata).Scan(
		&msg.ID, &msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

// Presence Repository Implementation
func (db *PostgresDB) UpsertPresence(ctx context.Context, state models.PresenceState) error {
	query := `
		INSERT INTO presence (project_id, user_id, status, custom_label, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id, user_id) DO UPDATE
		SET status = EXCLUDED.status, custom_label = EXCLUDED.custom_label, last_seen = EXCLUDED.last_seen`

	_, err := db.pool.Exec(ctx, query,
		state.ProjectID, state.UserID, state.Status, state.CustomLabel, state.LastSeen,
	)
	return err
}
