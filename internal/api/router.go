package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/oggyb/campus-match/internal/api/handlers"
	"github.com/oggyb/campus-match/internal/api/middleware"
	"github.com/oggyb/campus-match/internal/app"
	"github.com/oggyb/campus-match/internal/auth"
	"github.com/oggyb/campus-match/internal/metrics"
	"github.com/oggyb/campus-match/internal/service/chat"
	"github.com/oggyb/campus-match/internal/service/explore"
	"github.com/oggyb/campus-match/internal/service/notification"
	"github.com/oggyb/campus-match/internal/service/verification"
)

// Services groups the domain services shared by the HTTP and gRPC surfaces.
type Services struct {
	Explore       *explore.Engine
	Chat          *chat.Service
	Notifications *notification.Service
	Verification  *verification.Service
}

func NewServices(appCtx *app.AppContext) *Services {
	notifications := notification.NewService(appCtx)
	return &Services{
		Explore:       explore.NewEngine(appCtx, notifications),
		Chat:          chat.NewService(appCtx),
		Notifications: notifications,
		Verification:  verification.NewService(appCtx, notifications),
	}
}

func NewRouter(appCtx *app.AppContext, services *Services, tokens *auth.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	likeHandler := handlers.NewLikeHandler(appCtx, services.Explore)
	chatHandler := handlers.NewChatHandler(appCtx, services.Chat)
	notificationHandler := handlers.NewNotificationHandler(appCtx, services.Notifications)
	verificationHandler := handlers.NewVerificationHandler(appCtx, services.Verification)
	wsHandler := handlers.NewWebSocketHandler(appCtx, services.Chat)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(tokens))

		r.Route("/likes", func(r chi.Router) {
			r.Get("/", likeHandler.List)
			r.Put("/{userID}", likeHandler.Set)
			r.Get("/matches", likeHandler.Matches)
			r.Get("/matches/{userID}", likeHandler.CheckMatch)
			r.Get("/recommendation", likeHandler.Recommend)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", chatHandler.Create)
			r.Get("/", chatHandler.List)
			r.Get("/with/{userID}", chatHandler.FindWith)
			r.Get("/{chatID}", chatHandler.Get)
			r.Delete("/{chatID}", chatHandler.Delete)
			r.Get("/{chatID}/messages", chatHandler.Messages)
			r.Post("/{chatID}/messages", chatHandler.Send)
			r.Post("/{chatID}/read", chatHandler.ReadAll)
			r.Get("/{chatID}/unread", chatHandler.Unread)
		})
		r.Post("/messages/{messageID}/read", chatHandler.ReadMessage)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Post("/read", notificationHandler.ReadAll)
			r.Get("/{id}", notificationHandler.Get)
			r.Delete("/{id}", notificationHandler.Delete)
			r.Post("/{id}/read", notificationHandler.Read)
		})

		r.Route("/verification", func(r chi.Router) {
			r.Post("/", verificationHandler.Submit)
			r.Get("/", verificationHandler.Latest)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Get("/pending", verificationHandler.Pending)
				r.Post("/{id}/review", verificationHandler.Review)
			})
		})

		r.Route("/ws", func(r chi.Router) {
			r.Get("/chats", wsHandler.Chats)
			r.Get("/chats/{chatID}", wsHandler.Chat)
			r.Get("/notifications", wsHandler.Notifications)
		})
	})

	return r
}
