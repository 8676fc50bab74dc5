package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtimehub/internal/auth"
	"realtimehub/internal/config"
	"realtimehub/internal/database"
	"realtimehub/internal/handlers"
	"realtimehub/internal/models"
	"realtimehub/internal/realtime"
	"realtimehub/internal/services"
	"realtimehub/pkg/logger"

	"github.com/go-chi/chi/v5"
)

func main() {
	defer logger.Sync()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	bootstrapAdmin(db, cfg)

	// Initialize services
	authService := auth.NewService(db, cfg)
	roomService := services.NewRoomService(db)

	// Initialize realtime core
	hub := realtime.NewHub()
	hub.Presence.OnChange(func(state models.PresenceState) {
		hub.Broadcast.ToProject(state.ProjectID, &models.ServerFrame{
			Type:         models.FramePresence,
			UserID:       state.UserID,
			Status:       state.Status,
			CustomStatus: state.CustomLabel,
		})
		// Snapshot writeback is fire-and-forget; a store hiccup must not
		// stall presence fan-out.
		go func() {
			if err := db.UpsertPresence(context.Background(), state); err != nil {
				logger.Error("Error persisting presence for %s/%s: %v", state.ProjectID, state.UserID, err)
			}
		}()
	})

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(authService)
	adminHandlers := handlers.NewAdminHandlers(roomService, hub)
	wsHandlers := handlers.NewWebSocketHandlers(authService, roomService, hub, cfg)

	// Setup routes
	r := chi.NewRouter()
	r.Post("/login", authHandlers.Login)
	r.Get("/ws", wsHandlers.HandleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(authHandlers.RequireAdmin)
		r.Post("/projects", adminHandlers.CreateProject)
		r.Post("/projects/{projectID}/rooms", adminHandlers.CreateRoom)
		r.Get("/projects/{projectID}/rooms", adminHandlers.ListRooms)
		r.Get("/projects/{projectID}/presence", adminHandlers.GetPresence)
		r.Get("/stats", adminHandlers.Stats)
	})

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Server started on %s", cfg.Server.Port)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error: %v", err)
	}
}

// bootstrapAdmin creates the first admin account from the environment when
// the admins table is empty, so a fresh deployment can log in.
func bootstrapAdmin(db database.Store, cfg *config.Config) {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := db.CountAdmins(ctx)
	if err != nil {
		logger.Error("Error counting admins: %v", err)
		return
	}
	if count > 0 {
		return
	}

	if _, err := db.CreateAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Error("Error creating bootstrap admin: %v", err)
		return
	}
	logger.Info("Created bootstrap admin %s", cfg.Admin.Email)
}
