// Package testutil provides helpers for handler tests.
package testutil

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/models"
)

// NewApp creates a Fiber app with the standard error handler and correlation
// id middleware, then applies the given mount functions to register selective
// routes. Useful for tests.
func NewApp(mounts ...func(*fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: kit.ErrorHandler(false)})
	app.Use(requestid.New(requestid.Config{Header: kit.CorrelationHeader}))
	for _, m := range mounts {
		if m != nil {
			m(app)
		}
	}
	return app
}

// NewDB opens an in-memory sqlite database with the full schema migrated.
// Each call returns an isolated database.
func NewDB(t interface{ Fatalf(string, ...any) }) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gdb
}
