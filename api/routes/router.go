package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dshubenok/backender-challenge/api/controllers"
	"github.com/dshubenok/backender-challenge/api/middleware"
	"github.com/dshubenok/backender-challenge/pkg/config"
	"github.com/dshubenok/backender-challenge/pkg/db"
	"github.com/dshubenok/backender-challenge/pkg/logger"
	"github.com/dshubenok/backender-challenge/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	usersService controllers.UsersService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/", controllers.CreateUser(usersService, logg))
		r.Get("/{userId}", controllers.GetUser(usersService, logg))
	})

	return r
}
