package rest

import (
	"log/slog"

	"github.com/frahmantamala/todolist/internal/auth"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/role"
	"github.com/frahmantamala/todolist/internal/todo"
	"github.com/frahmantamala/todolist/internal/transport/middleware"
	"github.com/frahmantamala/todolist/internal/transport/swagger"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything the API mounts. Docs and Health may be nil.
type Handlers struct {
	Health        *HealthHandler
	Docs          *swagger.Docs
	Authenticator *auth.Authenticator
	Auth          *auth.Handler
	User          *user.Handler
	Role          *role.Handler
	ToDo          *todo.Handler
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if h.Docs != nil {
		router.Get(swagger.SpecPath, h.Docs.ServeSpec)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		r.Post("/auth/register", h.Auth.Register)
		if h.Auth.Sessions != nil {
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/logout", h.Auth.Logout)
		}

		// Everything below requires an acting user.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Authenticator.Middleware)
			pr.Use(middleware.UserContext)

			pr.Get("/auth/confirm/{token}", h.Auth.Confirm)
			pr.Post("/auth/confirm", h.Auth.ResendConfirmation)
			pr.Get("/users/me", h.User.GetCurrentUser)

			pr.Group(func(cr chi.Router) {
				cr.Use(h.Authenticator.RequireConfirmed)

				cr.Post("/tokens", h.Auth.IssueToken)

				cr.Get("/users/{id}", h.User.GetUser)
				cr.Get("/users/{id}/todos/", h.ToDo.ListUserToDos)
				cr.Get("/todos/", h.ToDo.ListToDos)
				cr.Get("/todos/{id}", h.ToDo.GetToDo)

				cr.Group(func(wr chi.Router) {
					wr.Use(middleware.RequirePermission(permission.Write))
					wr.Post("/todos/", h.ToDo.CreateToDo)
					wr.Put("/todos/{id}", h.ToDo.UpdateToDo)
				})

				cr.Group(func(mr chi.Router) {
					mr.Use(middleware.RequireAdmin())
					mr.Put("/users/{id}/role", h.User.AssignRole)
					mr.Get("/roles", h.Role.GetRoles)
				})
			})
		})
	})
}
