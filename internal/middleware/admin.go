package middleware

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/config"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/models"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
)

// AdminRequired runs after JWTProtected. It admits the X-Admin-Token holder,
// accounts listed in ADMIN_EMAILS or ADMIN_USER_IDS, and users stored with
// the admin role. The token's role claim alone is never enough.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	emails := csvSet(cfg.AdminEmails, strings.ToLower)
	userIDs := csvSet(cfg.AdminUserIDs, strings.ToLower)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}

		userID, err := session.GetUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if emails.Contains(strings.ToLower(session.GetEmail(c))) || userIDs.Contains(userID.String()) {
			return c.Next()
		}

		var user models.User
		if err := db.Select("role").First(&user, "id = ?", userID).Error; err == nil && user.Role == string(role.Admin) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

func csvSet(s string, normalize func(string) string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			set.Add(normalize(v))
		}
	}
	return set
}
