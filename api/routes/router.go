package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/api/controllers"
	"github.com/qanlink/qanlink-backend/api/middleware"
	"github.com/qanlink/qanlink-backend/internal/centers"
	"github.com/qanlink/qanlink-backend/internal/donations"
	"github.com/qanlink/qanlink-backend/internal/notifications"
	"github.com/qanlink/qanlink-backend/internal/requests"
	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/redis"
)

const (
	writeRateLimit  = 60
	writeRateWindow = time.Minute
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Broker        controllers.Pinger
	Users         users.Service
	Requests      requests.Service
	Donations     donations.Service
	Notifications notifications.Service
	Centers       centers.Service
}

// accountResolver adapts the users service to the middleware contract.
type accountResolver struct {
	users users.Service
}

func (a accountResolver) ResolveAccount(ctx context.Context, externalID, name, email string) (uuid.UUID, error) {
	profile, err := a.users.GetOrCreate(ctx, users.Identity{
		ExternalID: externalID,
		Name:       name,
		Email:      email,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return profile.ID, nil
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.Broker))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.CurrentUser(accountResolver{users: deps.Users}, logg))
		r.Use(middleware.WriteRateLimit(deps.Redis, writeRateLimit, writeRateWindow, logg))

		r.Route("/users", func(r chi.Router) {
			r.Post("/sync", controllers.SyncUser(deps.Users, logg))
			r.Route("/me", func(r chi.Router) {
				r.Get("/", controllers.GetMe(deps.Users, logg))
				r.Put("/phone", controllers.UpdatePhone(deps.Users, logg))
				r.Put("/blood-type", controllers.UpdateBloodType(deps.Users, logg))
				r.Put("/mode", controllers.UpdateMode(deps.Users, logg))
				r.Put("/location", controllers.UpdateLocation(deps.Users, logg))
				r.Put("/profile", controllers.UpdateProfile(deps.Users, logg))
				r.Put("/push-token", controllers.UpdatePushToken(deps.Users, logg))
				r.Post("/availability/toggle", controllers.ToggleAvailability(deps.Users, logg))
				r.Get("/availability", controllers.GetAvailability(deps.Users, logg))
				r.Get("/notification-preferences", controllers.GetNotificationPreferences(deps.Users, logg))
				r.Put("/notification-preferences", controllers.UpdateNotificationPreferences(deps.Users, logg))
				r.Get("/stats", controllers.MyStats(deps.Requests, logg))
			})
		})

		r.Route("/donors", func(r chi.Router) {
			r.Get("/", controllers.SearchDonors(deps.Users, logg))
			r.Get("/nearby", controllers.NearbyDonors(deps.Users, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.CreateRequest(deps.Requests, logg))
			r.Post("/broadcast", controllers.BroadcastEmergency(deps.Requests, logg))
			r.Get("/incoming", controllers.IncomingRequests(deps.Requests, logg))
			r.Get("/mine", controllers.MyRequests(deps.Requests, logg))
			r.Get("/open", controllers.OpenRequests(deps.Requests, logg))
			r.Get("/feed", controllers.HomeFeed(deps.Requests, logg))
			r.Route("/{requestId}", func(r chi.Router) {
				r.Get("/", controllers.RequestDetail(deps.Requests, logg))
				r.Post("/accept", controllers.AcceptRequest(deps.Requests, logg))
				r.Post("/cancel", controllers.CancelRequest(deps.Requests, logg))
				r.Post("/complete", controllers.CompleteRequest(deps.Requests, logg))
				r.Post("/decline", controllers.DeclineRequest(deps.Requests, logg))
			})
		})

		r.Route("/donations", func(r chi.Router) {
			r.Post("/", controllers.AddDonation(deps.Donations, logg))
			r.Get("/", controllers.ListDonations(deps.Donations, logg))
			r.Get("/stats", controllers.DonationStats(deps.Donations, logg))
			r.Get("/eligibility", controllers.DonationEligibility(deps.Donations, logg))
			r.Delete("/{donationId}", controllers.DeleteDonation(deps.Donations, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})

		r.Route("/centers", func(r chi.Router) {
			r.Get("/", controllers.ListCenters(deps.Centers, logg))
			r.Get("/nearby", controllers.NearbyCenters(deps.Centers, logg))
		})
	})

	return r
}
