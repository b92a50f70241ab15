package httpx

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/logx"
	"github.com/usecogent/cogent-api/pkg"
)

var httpxLogger = logx.GetScope("httpx")

// RegisterCommonMiddlewares registers panic recovery, correlation ids, CORS,
// the production trusted-host filter and a structured access log.
func RegisterCommonMiddlewares(app *fiber.App, cfg *config.Config) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Header: kit.CorrelationHeader}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORS.AllowedOrigins, ","),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, " + kit.CorrelationHeader,
	}))

	if cfg.IsProduction() {
		app.Use(trustedHosts(cfg.CORS.AllowedHosts))
	}

	// Structured access log
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		httpxLogger.Info("access",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.String("latency", pkg.SmartDurationFormat(latency)),
			zap.String("ip", c.IP()),
			zap.String("ua", c.Get("User-Agent")),
			zap.String("correlation_id", kit.CorrelationID(c)),
		)
		return err
	})
}

func trustedHosts(allowed []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		host := c.Hostname()
		for _, h := range allowed {
			if strings.EqualFold(host, h) {
				return c.Next()
			}
		}
		return kit.Forbidden("Host not allowed")
	}
}
