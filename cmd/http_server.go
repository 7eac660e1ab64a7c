package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/todolist/internal/auth"
	"github.com/frahmantamala/todolist/internal/role"
	"github.com/frahmantamala/todolist/internal/todo"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/internal/transport/rest"
	"github.com/frahmantamala/todolist/internal/transport/swagger"
	"github.com/frahmantamala/todolist/internal/user"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

func startHTTPServer() {
	ctx := context.Background()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		deps.Logger.Error("Failed to set up routes", "error", err)
		return
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr, "sessions", deps.Sessions != nil)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			return
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	docs, err := swagger.Load(ctx)
	if err != nil {
		return nil, err
	}

	cfg := deps.Config
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:        rest.NewHealthHandler(deps.SQLDB, deps.Redis),
		Docs:          docs,
		Authenticator: auth.NewAuthenticator(deps.Users, deps.Tokens, deps.Sessions),
		Auth:          auth.NewHandler(deps.Users, deps.Tokens, deps.Sessions, cfg.Security.AuthTokenTTL, cfg.Redis.SessionTTL),
		User:          user.NewHandler(deps.Users, deps.ToDos),
		Role:          role.NewHandler(transport.NewBaseHandler(deps.Logger), deps.Roles),
		ToDo:          todo.NewHandler(deps.ToDos, cfg.Todo.PerPage),
	}, deps.Logger)

	return router, nil
}
