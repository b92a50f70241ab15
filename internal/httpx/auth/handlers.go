// Package auth implements cookie-based JWT authentication: OAuth code
// exchange, token refresh and logout.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/logx"
	"github.com/usecogent/cogent-api/internal/models"
)

var authLogger = logx.GetScope("auth")

// LoginHandler exchanges an OAuth code for a session: the user row is
// upserted by email and both token cookies are issued.
func LoginHandler(cfg *config.Config, gdb *gorm.DB, provider Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.ValidationError("Invalid request body", nil)
		}
		if req.Provider == "" || req.Code == "" {
			return kit.ValidationError("provider and code are required", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		ident, err := provider.Exchange(ctx, req.Provider, req.Code)
		if err != nil {
			return kit.Unauthorized("OAuth exchange failed")
		}

		user, err := upsertUser(ctx, gdb, req.Provider, ident)
		if err != nil {
			return kit.Internal("login failed", err.Error())
		}

		access, err := SignAccess(cfg, user.ID, user.Email)
		if err != nil {
			return kit.Internal("sign access failed", err.Error())
		}
		refresh, err := SignRefresh(cfg, user.ID, user.Email)
		if err != nil {
			return kit.Internal("sign refresh failed", err.Error())
		}
		SetAuthCookies(c, cfg, access, refresh)

		authLogger.Sugar().Infow("login", "user_id", user.ID, "provider", req.Provider)

		return kit.OK(c, LoginResponse{
			User:      UserInfo{ID: user.ID.String(), Email: user.Email, Name: user.Name},
			ExpiresAt: time.Now().UTC().Add(time.Duration(cfg.JWT.AccessMin) * time.Minute),
		})
	}
}

func upsertUser(ctx context.Context, gdb *gorm.DB, provider string, ident *Identity) (*models.User, error) {
	var user models.User
	err := gdb.WithContext(ctx).Where("email = ?", ident.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:        uuid.New(),
			Email:     ident.Email,
			Name:      ident.Name,
			CreatedAt: time.Now().UTC(),
		}
		setProviderID(&user, provider, ident.ProviderID)
		if err := gdb.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	// Known user: record the provider id if this is a new provider for them.
	updates := map[string]any{}
	if provider == "github" && user.GithubID == nil {
		updates["github_id"] = ident.ProviderID
	}
	if provider == "google" && user.GoogleID == nil {
		updates["google_id"] = ident.ProviderID
	}
	if len(updates) > 0 {
		if err := gdb.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func setProviderID(user *models.User, provider, providerID string) {
	switch provider {
	case "github":
		user.GithubID = &providerID
	case "google":
		user.GoogleID = &providerID
	}
}

// LogoutHandler clears both token cookies.
func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ClearAuthCookies(c, cfg)
		return kit.OK(c, fiber.Map{"message": "Logged out"})
	}
}

// RefreshHandler mints a new access cookie from a valid refresh cookie.
func RefreshHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rt := c.Cookies("refresh_token")
		if rt == "" {
			return kit.Unauthorized("Refresh token missing")
		}
		claims, err := Verify(cfg, rt, TokenTypeRefresh)
		if err != nil {
			return kit.Unauthorized("Invalid refresh token")
		}
		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			return kit.Unauthorized("Invalid refresh token")
		}
		access, err := SignAccess(cfg, uid, claims.Email)
		if err != nil {
			return kit.Internal("sign access failed", err.Error())
		}
		SetAccessCookie(c, cfg, access)
		return kit.OK(c, RefreshResponse{
			ExpiresAt: time.Now().UTC().Add(time.Duration(cfg.JWT.AccessMin) * time.Minute),
		})
	}
}
