package routes

import (
	"net/http"

	_ "github.com/Dosada05/tournament-manager/docs"
	"github.com/Dosada05/tournament-manager/handlers"
	"github.com/Dosada05/tournament-manager/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	router.Get("/swagger/*", httpSwagger.WrapHandler)

	router.Post("/auth/login", authHandler.Login)

	// WebSocket живёт вне middleware с таймаутами
	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)

	authenticated := func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret))
		r.Use(middleware.Authorize(middleware.RoleOrganizer))
	}

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", tournamentHandler.List)

		// Защищенные маршруты только для организатора
		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Post("/", tournamentHandler.Create)
			r.Post("/import", tournamentHandler.Import)
		})

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", tournamentHandler.Get)
			r.Get("/standings", tournamentHandler.Standings)
			r.Get("/history", tournamentHandler.History)
			r.Get("/export.csv", tournamentHandler.ExportCSV)

			r.Group(func(r chi.Router) {
				authenticated(r)
				r.Patch("/", tournamentHandler.EditDetails)
				r.Delete("/", tournamentHandler.Delete)
				r.Post("/actions", tournamentHandler.Dispatch)
				r.Put("/matches/{matchID}/score", tournamentHandler.UpdateScore)
				r.Post("/playoffs", tournamentHandler.GeneratePlayoffs)
				r.Post("/playoffs/matches/{matchID}/override", tournamentHandler.OverrideWinner)
				r.Patch("/teams/{teamID}", tournamentHandler.RenameTeam)
				r.Post("/archive", tournamentHandler.Archive)
			})
		})
	})
}
