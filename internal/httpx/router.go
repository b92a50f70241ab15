// Package httpx wires the Fiber application: common middlewares, route
// registration and the handler packages underneath.
package httpx

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/esx"
	"github.com/usecogent/cogent-api/internal/httpx/auth"
	"github.com/usecogent/cogent-api/internal/httpx/documents"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/httpx/mw"
	"github.com/usecogent/cogent-api/internal/httpx/projects"
	"github.com/usecogent/cogent-api/internal/httpx/search"
	"github.com/usecogent/cogent-api/internal/httpx/users"
	"github.com/usecogent/cogent-api/internal/mqx"
	"github.com/usecogent/cogent-api/internal/redisx"
)

// Providers carries the optional infrastructure clients into the handlers.
type Providers struct {
	MQ       mqx.Publisher
	ES       *esx.Client
	RDB      *redisx.Client
	Identity auth.Provider
}

// Register mounts all routes on the app.
func Register(app *fiber.App, cfg *config.Config, gdb *gorm.DB, providers ...*Providers) {
	p := &Providers{}
	if len(providers) > 0 && providers[0] != nil {
		p = providers[0]
	}
	identity := p.Identity
	if identity == nil {
		identity = auth.MockProvider{}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return kit.OK(c, fiber.Map{
			"status":  "healthy",
			"service": "cogent-api",
			"version": kit.APIVersion,
		})
	})

	api := app.Group("/api/v1")
	api.Use(mw.CookieAuth(func(token string) (*mw.TokenData, error) {
		claims, err := auth.Verify(cfg, token, auth.TokenTypeAccess)
		if err != nil {
			return nil, err
		}
		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			return nil, err
		}
		return &mw.TokenData{UserID: uid, Email: claims.Email}, nil
	}))

	authGroup := api.Group("/auth", mw.RateLimit(p.RDB, cfg.RateLimit.WindowSec, cfg.RateLimit.Max))
	authGroup.Post("/login", auth.LoginHandler(cfg, gdb, identity))
	authGroup.Post("/logout", auth.LogoutHandler(cfg))
	authGroup.Post("/refresh", auth.RefreshHandler(cfg))

	proj := api.Group("/projects", mw.RequireUser())
	proj.Get("/", projects.ListProjectsHandler(cfg, gdb))
	proj.Post("/", projects.CreateProjectHandler(cfg, gdb))
	proj.Get("/:id", projects.GetProjectHandler(gdb))
	proj.Put("/:id", projects.UpdateProjectHandler(gdb))
	proj.Delete("/:id", projects.DeleteProjectHandler(gdb))

	proj.Get("/:id/documents", documents.ListDocumentsHandler(cfg, gdb))
	proj.Post("/:id/documents", documents.UpsertDocumentHandler(gdb, p.ES, p.MQ))
	proj.Post("/:id/search", search.Handler(cfg, gdb, p.MQ))

	user := api.Group("/user", mw.RequireUser())
	user.Get("/profile", users.GetProfileHandler(gdb))
	user.Put("/profile", users.UpdateProfileHandler(gdb))
	user.Get("/usage", users.GetUsageHandler(gdb))
}
