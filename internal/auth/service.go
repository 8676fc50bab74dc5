package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"realtimehub/internal/config"
	"realtimehub/internal/models"
	"realtimehub/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidKey  = errors.New("unknown API key")
	ErrInactiveKey = errors.New("API key is inactive")
)

// Store is the slice of the persistence layer the auth service needs.
type Store interface {
	GetAPIKey(ctx context.Context, key string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, key string) error
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
}

type cachedKey struct {
	key     *models.APIKey
	expires time.Time
}

type Service struct {
	store Store
	cfg   *config.Config

	mu    sync.Mutex
	cache map[string]cachedKey
}

func NewService(store Store, cfg *config.Config) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		cache: make(map[string]cachedKey),
	}
}

// ResolveKey maps an API key to its project. Resolved keys are cached for a
// short TTL so reconnect bursts do not hammer the store. The last-used
// timestamp update is fire-and-forget: its failure is logged, never surfaced.
func (s *Service) ResolveKey(ctx context.Context, key string) (*models.APIKey, error) {
	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expires) {
		s.mu.Unlock()
		return entry.key, nil
	}
	s.mu.Unlock()

	k, err := s.store.GetAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}
	if !k.Active {
		return nil, ErrInactiveKey
	}

	s.mu.Lock()
	s.cache[key] = cachedKey{key: k, expires: time.Now().Add(s.cfg.Auth.KeyCacheTTL)}
	s.mu.Unlock()

	go func() {
		if err := s.store.TouchAPIKey(context.Background(), key); err != nil {
			logger.Error("Error updating API key last-used: %v", err)
		}
	}()

	return k, nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	admin, err := s.store.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Remove sensitive data
	admin.PasswordHash = ""

	return &models.LoginResponse{
		Token: token,
		Admin: *admin,
	}, nil
}

func (s *Service) ValidateToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.JWT.Secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (s *Service) generateToken(admin *models.Admin) (string, error) {
	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"email":    admin.Email,
		"exp":      time.Now().Add(s.cfg.JWT.ExpiresIn).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWT.Secret)
}
