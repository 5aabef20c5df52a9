package routes

import (
	"net/http"
	"time"

	_ "github.com/Dosada05/tournament-registration/docs"
	"github.com/Dosada05/tournament-registration/handlers"
	"github.com/Dosada05/tournament-registration/middleware"
	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/storage"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	JWTSecret          []byte
	CORSAllowedOrigins []string
	// StaticDirs включает раздачу загруженных файлов с /public (локальное хранилище).
	StaticDirs *storage.Dirs
	// RegistrationLimiter ограничивает публичную регистрацию; nil отключает ограничение.
	RegistrationLimiter *middleware.IPRateLimiter
}

type Handlers struct {
	Auth        *handlers.AuthHandler
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	WebSocket   *handlers.WebSocketHandler
}

func SetupRoutes(router chi.Router, opts Options, h Handlers) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Handle("/metrics", promhttp.Handler())

	if opts.StaticDirs != nil {
		router.Handle("/public/images/*", http.StripPrefix("/public/images/", http.FileServer(http.Dir(opts.StaticDirs.ImagesDir))))
		router.Handle("/public/documents/*", http.StripPrefix("/public/documents/", http.FileServer(http.Dir(opts.StaticDirs.DocumentsDir))))
	}

	router.Route("/auth", func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(30 * time.Second))
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.With(authenticate).Get("/profile", h.Auth.Profile)
	})

	router.Route("/api/tournaments", func(r chi.Router) {
		// Публичные маршруты для просмотра турниров
		r.Get("/", h.Tournament.ListTournaments)
		r.Get("/latest", h.Tournament.GetLatestTournament)
		r.Get("/{tournamentID}", h.Tournament.GetTournament)

		// Защищенные маршруты для организаторов и администраторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", h.Tournament.CreateTournament)
			r.Put("/{tournamentID}", h.Tournament.UpdateTournament)
			r.Patch("/{tournamentID}", h.Tournament.UpdateTournament)
			r.Delete("/{tournamentID}", h.Tournament.DeleteTournament)
			r.Post("/{tournamentID}/image", h.Tournament.UploadBanner)
			r.Post("/{tournamentID}/slider", h.Tournament.UploadSliderImages)
			r.Post("/{tournamentID}/pdf", h.Tournament.UploadRulesPDF)
		})
	})

	router.Route("/participants", func(r chi.Router) {
		if opts.RegistrationLimiter != nil {
			r.With(opts.RegistrationLimiter.Middleware).Post("/", h.Participant.Register)
		} else {
			r.Post("/", h.Participant.Register)
		}

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Get("/", h.Participant.ListParticipants)
			r.Get("/{participantID}", h.Participant.GetParticipant)
			r.Delete("/{participantID}", h.Participant.DeleteParticipant)
		})
	})

	router.Route("/ws", func(r chi.Router) {
		r.Get("/lobby", h.WebSocket.ServeLobby)
		r.Get("/tournaments/{tournamentID}", h.WebSocket.ServeTournament)
	})
}
