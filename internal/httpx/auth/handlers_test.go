package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/usecogent/cogent-api/internal/config"
	"github.com/usecogent/cogent-api/internal/httpx/kit/testutil"
)

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Environment = "development"
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.AccessMin = 15
	cfg.JWT.RefreshDays = 7
	return cfg
}

func newTestApp(t *testing.T, gdb *gorm.DB, cfg *config.Config) *fiber.App {
	t.Helper()
	return testutil.NewApp(
		func(app *fiber.App) { app.Post("/api/v1/auth/login", LoginHandler(cfg, gdb, MockProvider{})) },
		func(app *fiber.App) { app.Post("/api/v1/auth/logout", LogoutHandler(cfg)) },
		func(app *fiber.App) { app.Post("/api/v1/auth/refresh", RefreshHandler(cfg)) },
	)
}

func postJSON(t *testing.T, app *fiber.App, path string, body any, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return res
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, ck := range res.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestLogin_IssuesCookiesAndUpsertsUser(t *testing.T) {
	gdb := testutil.NewDB(t)
	cfg := newTestConfig()
	app := newTestApp(t, gdb, cfg)

	res := postJSON(t, app, "/api/v1/auth/login", LoginRequest{Provider: "github", Code: "any-code"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	access := findCookie(res, "access_token")
	refresh := findCookie(res, "refresh_token")
	if access == nil || refresh == nil {
		t.Fatal("missing auth cookies")
	}
	if !access.HttpOnly || access.Path != "/api/v1" {
		t.Fatalf("access cookie misconfigured: %+v", access)
	}
	if access.Secure {
		t.Fatal("access cookie must not be Secure outside production")
	}

	var body struct {
		Data LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.User.Email != "dev@usecogent.io" {
		t.Fatalf("unexpected user: %+v", body.Data.User)
	}

	// Second login reuses the same user row.
	res2 := postJSON(t, app, "/api/v1/auth/login", LoginRequest{Provider: "google", Code: "other-code"})
	var body2 struct {
		Data LoginResponse `json:"data"`
	}
	_ = json.NewDecoder(res2.Body).Decode(&body2)
	if body.Data.User.ID != body2.Data.User.ID {
		t.Fatalf("login created a second user: %s vs %s", body.Data.User.ID, body2.Data.User.ID)
	}
}

func TestLogin_RejectsBadRequests(t *testing.T) {
	gdb := testutil.NewDB(t)
	cfg := newTestConfig()
	app := newTestApp(t, gdb, cfg)

	res := postJSON(t, app, "/api/v1/auth/login", LoginRequest{Provider: "github"})
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing code: status = %d", res.StatusCode)
	}

	res = postJSON(t, app, "/api/v1/auth/login", LoginRequest{Provider: "gitlab", Code: "x"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown provider: status = %d", res.StatusCode)
	}
}

func TestLogout_ClearsCookies(t *testing.T) {
	gdb := testutil.NewDB(t)
	cfg := newTestConfig()
	app := newTestApp(t, gdb, cfg)

	res := postJSON(t, app, "/api/v1/auth/logout", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	access := findCookie(res, "access_token")
	if access == nil || access.Value != "" || access.MaxAge >= 0 {
		t.Fatalf("access cookie not cleared: %+v", access)
	}
}

func TestRefresh_MintsNewAccessCookie(t *testing.T) {
	gdb := testutil.NewDB(t)
	cfg := newTestConfig()
	app := newTestApp(t, gdb, cfg)

	login := postJSON(t, app, "/api/v1/auth/login", LoginRequest{Provider: "github", Code: "c"})
	refresh := findCookie(login, "refresh_token")
	if refresh == nil {
		t.Fatal("missing refresh cookie")
	}

	res := postJSON(t, app, "/api/v1/auth/refresh", nil, refresh)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if findCookie(res, "access_token") == nil {
		t.Fatal("refresh did not set a new access cookie")
	}
}

func TestRefresh_RejectsMissingOrWrongTypeToken(t *testing.T) {
	gdb := testutil.NewDB(t)
	cfg := newTestConfig()
	app := newTestApp(t, gdb, cfg)

	res := postJSON(t, app, "/api/v1/auth/refresh", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no cookie: status = %d", res.StatusCode)
	}

	// An access token in the refresh cookie must be rejected.
	access, err := SignAccess(cfg, uuid.New(), "x@example.com")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	res = postJSON(t, app, "/api/v1/auth/refresh", nil, &http.Cookie{Name: "refresh_token", Value: access})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong type: status = %d", res.StatusCode)
	}
}

func TestVerify_TokenLifecycle(t *testing.T) {
	cfg := newTestConfig()
	uid := uuid.New()

	access, err := SignAccess(cfg, uid, "a@example.com")
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	claims, err := Verify(cfg, access, TokenTypeAccess)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != uid.String() || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("missing jti")
	}

	if _, err := Verify(cfg, access, TokenTypeRefresh); err == nil {
		t.Fatal("access token accepted as refresh")
	}

	other := newTestConfig()
	other.JWT.Secret = "different-secret"
	if _, err := Verify(other, access, TokenTypeAccess); err == nil {
		t.Fatal("token accepted with wrong secret")
	}

	// Expired token.
	expired := newTestConfig()
	expired.JWT.AccessMin = -1
	tok, err := SignAccess(expired, uid, "a@example.com")
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := Verify(cfg, tok, TokenTypeAccess); err == nil {
		t.Fatal("expired token accepted")
	}
}
