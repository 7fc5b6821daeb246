package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dosada05/checked/docs"
	"github.com/Dosada05/checked/handlers"
	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/middleware"
	"github.com/Dosada05/checked/storage"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	App          *handlers.AppHandler
	Auth         *handlers.AuthHandler
	Player       *handlers.PlayerHandler
	Tournament   *handlers.TournamentHandler
	Pairing      *handlers.PairingHandler
	Match        *handlers.MatchHandler
	Club         *handlers.ClubHandler
	Notification *handlers.NotificationHandler
	Utils        *handlers.UtilsHandler
	Admin        *handlers.AdminHandler
	WebSocket    *handlers.WebSocketHandler
}

type Options struct {
	Auth               *middleware.Auth
	Metrics            *metrics.Metrics
	Cache              storage.Cache
	RateLimitPerMinute int
	AllowedOrigins     []string
	Logger             *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.Metrics != nil {
		router.Use(middleware.Instrument(opts.Metrics))
	}

	authenticated := opts.Auth.Authenticate
	admin := func(r chi.Router) {
		r.Use(authenticated)
		r.Use(middleware.RequireAdmin)
	}

	router.Get("/", h.App.Root)
	router.Get("/health", h.App.Health)
	router.Get("/stats", h.App.Stats)
	router.Group(func(r chi.Router) {
		admin(r)
		r.Post("/admin/optimize", h.App.Optimize)
		r.Post("/admin/backup", h.App.Backup)
	})
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	router.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	router.Get("/ws", h.WebSocket.ServeWs)
	router.Get("/ws/stats", h.WebSocket.Stats)

	router.Route("/api", func(api chi.Router) {
		api.Use(middleware.RateLimit(opts.Cache, opts.RateLimitPerMinute, opts.Metrics, opts.Logger))

		api.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/login/json", h.Auth.LoginJSON)
			r.Post("/login/secure", h.Auth.LoginJSON)
			r.Get("/verify/{username}", h.Auth.VerifyUsername)
			r.Post("/request-reset", h.Auth.RequestReset)
			r.Post("/reset-password", h.Auth.ResetPassword)
			r.Get("/push/vapid-key", h.Notification.VAPIDKey)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Get("/me", h.Auth.Me)
				r.Post("/fingerprint", h.Auth.RecordFingerprint)
				r.Post("/fingerprint/register", h.Auth.RecordRegistrationFingerprint)
				r.Get("/security/status", h.Auth.SecurityStatus)
				r.Post("/push/subscribe", h.Notification.Subscribe)
				r.Post("/push/unsubscribe", h.Notification.Unsubscribe)
				r.Post("/push/toggle", h.Notification.TogglePush)
				r.Get("/push/status", h.Notification.PushStatus)
			})
		})

		api.Route("/players", func(r chi.Router) {
			r.Get("/leaderboard/global", h.Player.Leaderboard)
			r.Get("/username/{username}", h.Player.GetByUsername)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Patch("/me", h.Player.UpdateMe)
				r.Post("/me/refresh-avatar", h.Player.RefreshMyAvatar)
				r.Post("/me/refresh-ratings", h.Player.RefreshMyRatings)
				r.Get("/me/tournaments", h.Player.MyTournaments)
				r.Get("/me/stats", h.Player.MyStats)
			})
			r.Group(func(r chi.Router) {
				admin(r)
				r.Get("/", h.Player.List)
				r.Post("/refresh-all-ratings", h.Player.RefreshAllRatings)
				r.Post("/{playerID}/refresh-ratings", h.Player.RefreshRatings)
				r.Patch("/{playerID}/admin", h.Player.ToggleAdmin)
				r.Patch("/{playerID}/deactivate", h.Player.ToggleActive)
			})

			r.Get("/{playerID}", h.Player.Get)
			r.Get("/{playerID}/tournaments", h.Player.Tournaments)
			r.Get("/{playerID}/stats", h.Player.Stats)
		})

		api.Route("/tournaments", func(r chi.Router) {
			r.With(opts.Auth.Optional).Get("/", h.Tournament.List)
			r.Get("/{tournamentID}", h.Tournament.Get)
			r.Get("/{tournamentID}/players", h.Tournament.Players)
			r.Get("/{tournamentID}/standings", h.Tournament.Standings)
			r.Get("/{tournamentID}/pairings", h.Pairing.List)
			r.Get("/{tournamentID}/pairings/{pairingID}", h.Pairing.Get)
			r.Get("/{tournamentID}/current-round", h.Pairing.CurrentRound)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/{tournamentID}/join", h.Tournament.Join)
				r.Get("/{tournamentID}/check-eligibility", h.Tournament.CheckEligibility)
				r.Post("/{tournamentID}/withdraw", h.Tournament.Withdraw)

				r.Get("/{tournamentID}/my-pairings", h.Pairing.MyPairings)
				r.Patch("/{tournamentID}/pairings/{pairingID}/result", h.Pairing.UpdateResult)
				r.Post("/{tournamentID}/pairings/{pairingID}/submit-game", h.Pairing.SubmitGame)
				r.Post("/{tournamentID}/pairings/{pairingID}/claim-no-show", h.Pairing.ClaimNoShow)
				r.Post("/{tournamentID}/pairings/{pairingID}/claim-result", h.Pairing.ClaimResult)
				r.Post("/{tournamentID}/pairings/{pairingID}/confirm", h.Pairing.ConfirmResult)
				r.Post("/{tournamentID}/pairings/{pairingID}/dispute", h.Pairing.DisputeResult)
				r.Post("/{tournamentID}/pairings/{pairingID}/cancel-claim", h.Pairing.CancelClaim)
			})

			r.Group(func(r chi.Router) {
				admin(r)
				r.Post("/", h.Tournament.Create)
				r.Patch("/{tournamentID}", h.Tournament.Update)
				r.Post("/{tournamentID}/generate-pairings", h.Pairing.Generate)
				r.Post("/{tournamentID}/process-deadlines", h.Pairing.ProcessDeadlines)
				r.Get("/{tournamentID}/expired-pairings", h.Pairing.ExpiredPairings)
				r.Get("/{tournamentID}/pending-confirmations", h.Pairing.PendingConfirmations)
				r.Get("/{tournamentID}/disputed-results", h.Pairing.DisputedResults)
				r.Post("/{tournamentID}/pairings/{pairingID}/admin-override", h.Pairing.AdminOverride)
			})
		})

		api.Route("/matches", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/my-matches", h.Match.MyMatches)
			r.Get("/action-required/count", h.Match.ActionRequiredCount)
		})

		api.Route("/notifications", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/", h.Notification.List)
			r.Get("/unread-count", h.Notification.UnreadCount)
			r.Patch("/read-all", h.Notification.MarkAllRead)
			r.Patch("/{notificationID}/read", h.Notification.MarkRead)
		})

		api.Route("/utils", func(r chi.Router) {
			r.Get("/counties", h.Utils.Counties)
			r.Get("/regions", h.Utils.Regions)
			r.Get("/time-controls", h.Utils.TimeControls)
			r.Get("/tournament-formats", h.Utils.Formats)
			r.Get("/calculate-rounds", h.Utils.CalculateRounds)
			r.Get("/public-stats", h.Utils.PublicStats)
			r.Get("/upcoming-tournaments", h.Utils.Upcoming)
		})

		api.Route("/admin", func(r chi.Router) {
			admin(r)
			r.Get("/analytics/summary", h.Admin.Summary)
			r.Get("/analytics/user-growth", h.Admin.UserGrowth)
			r.Get("/analytics/tournament-activity", h.Admin.TournamentActivity)
			r.Get("/security/players/{playerID}/logins", h.Admin.PlayerLogins)
			r.Get("/security/players/{playerID}/flags", h.Admin.PlayerFlags)
		})
	})

	router.Route("/clubs", func(r chi.Router) {
		r.Get("/", h.Club.List)
		r.Get("/counties", h.Club.Counties)
		r.Get("/{clubID}", h.Club.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/{clubID}/join", h.Club.Join)
			r.Post("/{clubID}/leave", h.Club.Leave)
		})
		r.Group(func(r chi.Router) {
			admin(r)
			r.Post("/", h.Club.Create)
			r.Post("/refresh-all-stats", h.Club.RefreshAllStats)
			r.Patch("/{clubID}", h.Club.Update)
			r.Delete("/{clubID}", h.Club.Delete)
			r.Post("/{clubID}/members/{playerID}", h.Club.AddMember)
			r.Delete("/{clubID}/members/{playerID}", h.Club.RemoveMember)
			r.Post("/{clubID}/refresh-stats", h.Club.RefreshStats)
			r.Post("/{clubID}/logo", h.Club.UploadLogo)
		})
	})
}
