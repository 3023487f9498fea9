package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kegtrack/bracket-engine/handlers"
	"github.com/kegtrack/bracket-engine/middleware"
	"github.com/kegtrack/bracket-engine/models"
)

// SetupRoutes wires the transport-agnostic engine operations onto the
// HTTP router. Reads are public; every mutation sits behind admin auth.
func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
	jwtSecret []byte,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	adminOnly := func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))
		r.Use(middleware.RequireRole(models.RoleAdmin))
	}

	router.Post("/auth/login", authHandler.LoginHandler)

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/matches", matchHandler.ListByTournamentHandler)

		r.Group(func(r chi.Router) {
			adminOnly(r)
			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/activate", tournamentHandler.ActivateHandler)
			r.Post("/{tournamentID}/complete", tournamentHandler.CompleteHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
			r.Post("/{tournamentID}/teams", teamHandler.AddHandler)
			r.Post("/{tournamentID}/teams/promote", teamHandler.PromoteHandler)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		adminOnly(r)
		r.Delete("/{teamID}", teamHandler.RemoveHandler)
		r.Put("/{teamID}/crest", teamHandler.UploadCrestHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		adminOnly(r)
		r.Post("/{matchID}/slots", matchHandler.AssignSlotHandler)
		r.Post("/{matchID}/start", matchHandler.StartHandler)
		r.Post("/{matchID}/undo-start", matchHandler.UndoStartHandler)
		r.Post("/{matchID}/complete", matchHandler.CompleteHandler)
	})

	router.Route("/pool-teams", func(r chi.Router) {
		r.Get("/", teamHandler.ListPoolHandler)
		r.Group(func(r chi.Router) {
			adminOnly(r)
			r.Post("/", teamHandler.AddPoolHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
