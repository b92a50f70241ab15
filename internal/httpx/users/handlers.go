// Package users provides profile and usage-stats handlers for the current
// user.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/httpx/mw"
	"github.com/usecogent/cogent-api/internal/models"
)

// UpdateProfileRequest applies only supplied fields.
type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty"`
}

// UsageStats aggregates the caller's usage across all their projects.
type UsageStats struct {
	TotalTokens        int64        `json:"totalTokens"`
	TotalCost          float64      `json:"totalCost"`
	DocumentsGenerated int64        `json:"documentsGenerated"`
	SearchesPerformed  int64        `json:"searchesPerformed"`
	DailyUsage         []DailyUsage `json:"dailyUsage,omitempty"`
}

// DailyUsage is one calendar day's slice of the stats.
type DailyUsage struct {
	Date       string  `json:"date"`
	TokensUsed int64   `json:"tokensUsed"`
	Cost       float64 `json:"cost"`
	Operations int64   `json:"operations"`
}

// GetProfileHandler returns the caller's user row.
func GetProfileHandler(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		var user models.User
		if err := gdb.WithContext(ctx).First(&user, "id = ?", td.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return kit.NotFound("User not found")
			}
			return kit.Internal("load profile failed", err.Error())
		}
		return kit.OK(c, user)
	}
}

// UpdateProfileHandler applies a partial update to the caller's profile.
func UpdateProfileHandler(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)
		var req UpdateProfileRequest
		if err := c.BodyParser(&req); err != nil {
			return kit.ValidationError("Invalid request body", nil)
		}

		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		var user models.User
		if err := gdb.WithContext(ctx).First(&user, "id = ?", td.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return kit.NotFound("User not found")
			}
			return kit.Internal("load profile failed", err.Error())
		}

		if req.Name != nil {
			if err := gdb.WithContext(ctx).Model(&user).Update("name", *req.Name).Error; err != nil {
				return kit.Internal("update profile failed", err.Error())
			}
			user.Name = *req.Name
		}

		return kit.OK(c, user)
	}
}

// GetUsageHandler aggregates usage over the caller's projects. The daily
// breakdown is computed only when both bounds of the window are given.
func GetUsageHandler(gdb *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		td := mw.User(c)

		from, err := parseTimeParam(c.Query("from", ""))
		if err != nil {
			return kit.ValidationError("Invalid from timestamp", c.Query("from"))
		}
		to, err := parseTimeParam(c.Query("to", ""))
		if err != nil {
			return kit.ValidationError("Invalid to timestamp", c.Query("to"))
		}

		ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		projectIDs := gdb.WithContext(ctx).Model(&models.Project{}).
			Select("id").Where("user_id = ?", td.UserID)

		scoped := func() *gorm.DB {
			q := gdb.WithContext(ctx).Model(&models.Usage{}).
				Where("project_id IN (?)", projectIDs)
			if from != nil {
				q = q.Where("timestamp >= ?", *from)
			}
			if to != nil {
				q = q.Where("timestamp <= ?", *to)
			}
			return q
		}

		var stats UsageStats
		var totals struct {
			Tokens int64
			Cost   float64
		}
		if err := scoped().
			Select("COALESCE(SUM(tokens_used), 0) AS tokens, COALESCE(SUM(cost), 0) AS cost").
			Scan(&totals).Error; err != nil {
			return kit.Internal("usage stats failed", err.Error())
		}
		stats.TotalTokens = totals.Tokens
		stats.TotalCost = totals.Cost

		if err := scoped().Where("operation_type = ?", models.OpDocumentGeneration).
			Count(&stats.DocumentsGenerated).Error; err != nil {
			return kit.Internal("usage stats failed", err.Error())
		}
		if err := scoped().Where("operation_type = ?", models.OpSearch).
			Count(&stats.SearchesPerformed).Error; err != nil {
			return kit.Internal("usage stats failed", err.Error())
		}

		if from != nil && to != nil {
			var daily []DailyUsage
			if err := scoped().
				// postgres DATE() yields a date value, not text; cast so the
				// string scan works on both drivers.
				Select("CAST(DATE(timestamp) AS TEXT) AS date, COALESCE(SUM(tokens_used), 0) AS tokens_used, COALESCE(SUM(cost), 0) AS cost, COUNT(*) AS operations").
				Group("DATE(timestamp)").
				Order("DATE(timestamp)").
				Scan(&daily).Error; err != nil {
				return kit.Internal("usage stats failed", err.Error())
			}
			stats.DailyUsage = daily
		}

		return kit.OK(c, stats)
	}
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
