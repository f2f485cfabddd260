package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/config"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	profileHandler *handlers.ProfileHandler,
	inboxHandler *handlers.InboxHandler,
	moderationHandler *handlers.ModerationHandler,
	adminHandler *handlers.AdminHandler,
	liveHandler *handlers.LiveHandler,
) {
	api := app.Group("/api")

	// The live channel is long-lived and sits outside the request limiter.
	api.Get("/live", middleware.JWTFromQueryOrHeader(cfg), liveHandler.Upgrade, liveHandler.Serve())

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes (JWT required) - apply middleware to individual routes
	// This prevents JWT middleware from affecting public routes
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Profile wizard: only roles that onboard
	onboarders := middleware.RoleRequired(role.Influencer, role.Vendor, role.Agency)
	profile := api.Group("/profile", middleware.JWTProtected(cfg), onboarders)
	profile.Get("/", profileHandler.Get)
	profile.Put("/personal", profileHandler.SavePersonal)
	profile.Put("/social", profileHandler.SaveSocial)
	profile.Put("/categories", profileHandler.SaveCategories)
	profile.Put("/portfolio", profileHandler.SavePortfolio)
	profile.Put("/payment", profileHandler.SavePayment)
	api.Get("/onboarding", middleware.JWTProtected(cfg), onboarders, profileHandler.Onboarding)

	// Inbox
	api.Get("/inbox/:stream", middleware.JWTProtected(cfg), inboxHandler.Unread)
	api.Post("/conversations", middleware.JWTProtected(cfg), inboxHandler.SendMessage)
	api.Post("/conversations/:id/read", middleware.JWTProtected(cfg), inboxHandler.ReadConversation)
	api.Delete("/conversations/:id", middleware.JWTProtected(cfg), inboxHandler.DeleteConversation)
	api.Post("/notifications/:id/read", middleware.JWTProtected(cfg), inboxHandler.ReadNotification)
	api.Delete("/notifications/:id", middleware.JWTProtected(cfg), inboxHandler.DeleteNotification)

	// Moderation — user endpoints (protected)
	api.Post("/reports", middleware.JWTProtected(cfg), moderationHandler.CreateReport)
	api.Post("/blocks", middleware.JWTProtected(cfg), moderationHandler.BlockUser)
	api.Delete("/blocks/:id", middleware.JWTProtected(cfg), moderationHandler.UnblockUser)

	// Admin panel (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/moderation/reports", moderationHandler.ListReports)
	admin.Put("/moderation/reports/:id", moderationHandler.ActionReport)
	admin.Put("/profiles/:id/status", adminHandler.SetProfileStatus)
}
