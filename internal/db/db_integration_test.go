//go:build integration
// +build integration

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit/testutil"
	"github.com/usecogent/cogent-api/internal/httpx/mw"
	"github.com/usecogent/cogent-api/internal/httpx/users"
	"github.com/usecogent/cogent-api/internal/models"
)

func Test_Open_With_PostgresContainer(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("cogent"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/cogent?sslmode=disable", host, port.Port())

	cfg := &config.Config{}
	cfg.PG.URL = dsn
	cfg.PG.MaxOpenConns = 5
	cfg.PG.MaxIdleConns = 2

	gdb, closeFn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeFn()

	if err := models.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	user := &models.User{
		ID:        uuid.New(),
		Email:     "it@example.com",
		Name:      "Integration Tester",
		CreatedAt: time.Now().UTC(),
	}
	if err := gdb.WithContext(ctx2).Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	project := &models.Project{
		ID:        uuid.New(),
		Name:      "it-project",
		UserID:    user.ID,
		APIKey:    uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := gdb.WithContext(ctx2).Create(project).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}

	var count int64
	if err := gdb.WithContext(ctx2).Model(&models.Project{}).
		Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count projects: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 project, got %d", count)
	}

	// The usage endpoint's daily breakdown groups on DATE(timestamp); make
	// sure the aggregation scans cleanly on a real postgres.
	day1 := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	for _, u := range []*models.Usage{
		{ID: uuid.New(), ProjectID: project.ID, Timestamp: day1, OperationType: models.OpSearch, TokensUsed: 10, Cost: 0.01},
		{ID: uuid.New(), ProjectID: project.ID, Timestamp: day1.Add(time.Hour), OperationType: models.OpDocumentGeneration, TokensUsed: 30, Cost: 0.03},
		{ID: uuid.New(), ProjectID: project.ID, Timestamp: day2, OperationType: models.OpSearch, TokensUsed: 5, Cost: 0.005},
	} {
		if err := gdb.WithContext(ctx2).Create(u).Error; err != nil {
			t.Fatalf("create usage: %v", err)
		}
	}

	authn := mw.CookieAuth(func(string) (*mw.TokenData, error) {
		return &mw.TokenData{UserID: user.ID, Email: user.Email}, nil
	})
	app := testutil.NewApp(func(app *fiber.App) {
		app.Get("/api/v1/users/usage", authn, mw.RequireUser(), users.GetUsageHandler(gdb))
	})

	req := httptest.NewRequest("GET", "/api/v1/users/usage?from=2026-08-20&to=2026-08-22", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "any"})
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("usage request: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("usage status = %d", res.StatusCode)
	}
	var env struct {
		Data users.UsageStats `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatalf("decode usage: %v", err)
	}
	if env.Data.TotalTokens != 45 {
		t.Errorf("total tokens = %d", env.Data.TotalTokens)
	}
	if len(env.Data.DailyUsage) != 2 {
		t.Fatalf("daily rows = %d", len(env.Data.DailyUsage))
	}
	if env.Data.DailyUsage[0].Date != "2026-08-20" || env.Data.DailyUsage[0].TokensUsed != 40 {
		t.Errorf("day 1 = %+v", env.Data.DailyUsage[0])
	}
	if env.Data.DailyUsage[1].Date != "2026-08-21" || env.Data.DailyUsage[1].Operations != 1 {
		t.Errorf("day 2 = %+v", env.Data.DailyUsage[1])
	}

	// Cascade: dropping the user should take the project with it.
	if err := gdb.WithContext(ctx2).Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := gdb.WithContext(ctx2).Model(&models.Project{}).
		Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("recount projects: %v", err)
	}
	if count != 0 {
		t.Errorf("expected cascade delete of projects, got %d rows", count)
	}
}
