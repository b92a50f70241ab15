package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/usecogent/cogent-api/internal/logx"
)

var configLogger = logx.GetScope("config")

// Config holds the application configuration
type Config struct {
	Environment string // development, production
	Server      struct {
		Addr string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text, json
	}
	PG struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
	}
	JWT struct {
		Secret       string
		AccessMin    int
		RefreshDays  int
		CookieDomain string // applied in production only
	}
	CORS struct {
		AllowedOrigins []string
		AllowedHosts   []string
	}
	Page struct {
		ProjectDefault  int
		ProjectMax      int
		DocumentDefault int
		DocumentMax     int
		SearchDefault   int
		SearchMax       int
	}
	RateLimit struct {
		WindowSec int
		Max       int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	MQ struct {
		URL string // RabbitMQ URL
	}
	ES struct {
		Addrs    string // comma separated
		Username string
		Password string
	}
	Apollo struct {
		Enable    bool
		AppID     string
		Cluster   string
		Namespace string
		Addrs     string
		AccessKey string
	}
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool { return c.Environment != "production" }

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool { return c.Environment == "production" }

// CookieSecure reports whether auth cookies require HTTPS.
func (c *Config) CookieSecure() bool { return c.IsProduction() }

// Load loads config from env, and if enabled, overrides with Apollo values.
// Returns config, store, optional apollo closer, and error.
func Load() (*Config, *Store, func(), error) {
	cfg := &Config{}

	cfg.Environment = getEnv("ENVIRONMENT", "development")
	cfg.Server.Addr = getEnv("SERVER_ADDR", ":8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "text")
	cfg.PG.URL = getEnv("DATABASE_URL", "")
	cfg.PG.MaxOpenConns = getInt("PG_MAX_OPEN", 10)
	cfg.PG.MaxIdleConns = getInt("PG_MAX_IDLE", 5)

	cfg.JWT.Secret = getEnv("JWT_SECRET_KEY", "dev-secret-key-change-in-production")
	cfg.JWT.AccessMin = getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)
	cfg.JWT.RefreshDays = getInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	cfg.JWT.CookieDomain = getEnv("COOKIE_DOMAIN", ".usecogent.io")

	cfg.CORS.AllowedOrigins = getList("ALLOWED_ORIGINS", defaultOrigins(cfg.Environment))
	cfg.CORS.AllowedHosts = getList("ALLOWED_HOSTS", defaultHosts(cfg.Environment))

	cfg.Page.ProjectDefault = 20
	cfg.Page.ProjectMax = 100
	cfg.Page.DocumentDefault = 50
	cfg.Page.DocumentMax = 200
	cfg.Page.SearchDefault = 10
	cfg.Page.SearchMax = 50

	cfg.RateLimit.WindowSec = getInt("RATE_LIMIT_WINDOW_SEC", 60)
	cfg.RateLimit.Max = getInt("RATE_LIMIT_MAX", 120)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)

	cfg.MQ.URL = getEnv("RABBITMQ_URL", "")

	cfg.ES.Addrs = getEnv("ES_ADDRS", "")
	cfg.ES.Username = getEnv("ES_USERNAME", "")
	cfg.ES.Password = getEnv("ES_PASSWORD", "")

	cfg.Apollo.Enable = getBool("APOLLO_ENABLE", false)
	cfg.Apollo.AppID = getEnv("APOLLO_APP_ID", "")
	cfg.Apollo.Cluster = getEnv("APOLLO_CLUSTER", "default")
	cfg.Apollo.Namespace = getEnv("APOLLO_NAMESPACE", "application")
	cfg.Apollo.Addrs = getEnv("APOLLO_ADDRS", "")
	cfg.Apollo.AccessKey = getEnv("APOLLO_ACCESS_KEY", "")

	store := NewStore(cfg)

	if cfg.Apollo.Enable {
		closer, err := overrideFromApollo(cfg, store)
		if err != nil {
			configLogger.Sugar().Errorf("apollo override failed: %v", err)
			return cfg, store, closer, err
		}
		return cfg, store, closer, nil
	}

	return cfg, store, nil, nil
}

func defaultOrigins(env string) []string {
	if env == "production" {
		return []string{"https://usecogent.io", "https://www.usecogent.io"}
	}
	return []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
		"http://localhost:5173",
	}
}

func defaultHosts(env string) []string {
	if env == "production" {
		return []string{"api.usecogent.io", "usecogent.io"}
	}
	return []string{"localhost", "127.0.0.1", "testserver"}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v != "", v, def)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	return lo.FilterMap(parts, func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
}
