package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit"
	"github.com/usecogent/cogent-api/internal/httpx/kit/testutil"
)

func newE2EConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Environment = "development"
	cfg.JWT.Secret = "e2e-secret"
	cfg.JWT.AccessMin = 15
	cfg.JWT.RefreshDays = 7
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Page.ProjectDefault = 20
	cfg.Page.ProjectMax = 100
	cfg.Page.DocumentDefault = 50
	cfg.Page.DocumentMax = 200
	cfg.Page.SearchDefault = 10
	cfg.Page.SearchMax = 50
	cfg.RateLimit.WindowSec = 60
	cfg.RateLimit.Max = 100
	return cfg
}

func newE2EApp(t *testing.T, cfg *config.Config) (*fiber.App, *gorm.DB) {
	t.Helper()
	gdb := testutil.NewDB(t)
	app := fiber.New(fiber.Config{ErrorHandler: kit.ErrorHandler(cfg.IsProduction())})
	RegisterCommonMiddlewares(app, cfg)
	Register(app, cfg, gdb)
	return app, gdb
}

func jsonReq(method, path string, body any, cookies []*http.Cookie) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func TestEndToEnd_LoginThenCRUDThenSearch(t *testing.T) {
	cfg := newE2EConfig()
	app, _ := newE2EApp(t, cfg)

	// Liveness is open and enveloped.
	res, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", res.StatusCode)
	}
	if res.Header.Get(kit.CorrelationHeader) == "" {
		t.Fatal("missing correlation header")
	}

	// Protected routes reject anonymous callers.
	res, err = app.Test(httptest.NewRequest("GET", "/api/v1/projects/", nil))
	if err != nil {
		t.Fatalf("anon projects: %v", err)
	}
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anon projects status = %d", res.StatusCode)
	}

	// Login issues both cookies.
	res, err = app.Test(jsonReq("POST", "/api/v1/auth/login",
		fiber.Map{"provider": "github", "code": "e2e"}, nil))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", res.StatusCode)
	}
	cookies := res.Cookies()
	if len(cookies) < 2 {
		t.Fatalf("cookies = %d", len(cookies))
	}

	// Same request with the access cookie now succeeds.
	res, err = app.Test(jsonReq("GET", "/api/v1/projects/", nil, cookies))
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("projects status = %d", res.StatusCode)
	}

	// Create a project, upsert a document, search for it.
	res, err = app.Test(jsonReq("POST", "/api/v1/projects/", fiber.Map{"name": "e2e"}, cookies))
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status = %d", res.StatusCode)
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode project: %v", err)
	}

	res, err = app.Test(jsonReq("POST", "/api/v1/projects/"+created.Data.ID+"/documents",
		fiber.Map{"filePath": "guide/setup.md", "content": "Install the binary, then run it.", "summary": "setup"}, cookies))
	if err != nil {
		t.Fatalf("upsert doc: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("upsert doc status = %d", res.StatusCode)
	}

	res, err = app.Test(jsonReq("POST", "/api/v1/projects/"+created.Data.ID+"/search",
		fiber.Map{"query": "install binary"}, cookies))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d", res.StatusCode)
	}
	var searchEnv struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	_ = json.NewDecoder(res.Body).Decode(&searchEnv)
	if searchEnv.Data.Total != 1 {
		t.Fatalf("search total = %d", searchEnv.Data.Total)
	}

	// Usage ledger picked up the search.
	res, err = app.Test(jsonReq("GET", "/api/v1/user/usage", nil, cookies))
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	var usageEnv struct {
		Data struct {
			SearchesPerformed int `json:"searchesPerformed"`
		} `json:"data"`
	}
	_ = json.NewDecoder(res.Body).Decode(&usageEnv)
	if usageEnv.Data.SearchesPerformed != 1 {
		t.Fatalf("searchesPerformed = %d", usageEnv.Data.SearchesPerformed)
	}

	// Logout clears the session.
	res, err = app.Test(jsonReq("POST", "/api/v1/auth/logout", nil, cookies))
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", res.StatusCode)
	}
}

func TestAuthRateLimit(t *testing.T) {
	cfg := newE2EConfig()
	cfg.RateLimit.Max = 2
	app, _ := newE2EApp(t, cfg)

	var last int
	for i := 0; i < 3; i++ {
		res, err := app.Test(jsonReq("POST", "/api/v1/auth/login",
			fiber.Map{"provider": "github", "code": "x"}, nil))
		if err != nil {
			t.Fatalf("login %d: %v", i, err)
		}
		last = res.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third login status = %d", last)
	}
}
