package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/usecogent/cogent-api/internal/config"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents JWT claims used by this service.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

var (
	errInvalidToken = errors.New("invalid token")
	errWrongType    = errors.New("unexpected token type")
)

// SignAccess issues a short-lived access token.
func SignAccess(cfg *config.Config, userID uuid.UUID, email string) (string, error) {
	ttl := time.Duration(cfg.JWT.AccessMin) * time.Minute
	return sign(cfg, userID, email, TokenTypeAccess, ttl)
}

// SignRefresh issues a long-lived refresh token.
func SignRefresh(cfg *config.Config, userID uuid.UUID, email string) (string, error) {
	ttl := time.Duration(cfg.JWT.RefreshDays) * 24 * time.Hour
	return sign(cfg, userID, email, TokenTypeRefresh, ttl)
}

func sign(cfg *config.Config, userID uuid.UUID, email, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID: userID.String(),
		Email:  email,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// Verify parses a token string and checks signature, expiry and token type.
func Verify(cfg *config.Config, tokenStr, expectedType string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return nil, errInvalidToken
	}
	if claims.Type != expectedType {
		return nil, errWrongType
	}
	if claims.UserID == "" || claims.Email == "" {
		return nil, errInvalidToken
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

// cookiePath scopes auth cookies to the API surface only.
const cookiePath = "/api/v1"

func setCookie(c *fiber.Ctx, cfg *config.Config, name, value string, maxAge int) {
	ck := &fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     cookiePath,
		MaxAge:   maxAge,
	}
	if cfg.IsProduction() {
		ck.Secure = true
		ck.Domain = cfg.JWT.CookieDomain
	}
	c.Cookie(ck)
}

// SetAuthCookies writes both access and refresh cookies.
func SetAuthCookies(c *fiber.Ctx, cfg *config.Config, access, refresh string) {
	SetAccessCookie(c, cfg, access)
	setCookie(c, cfg, "refresh_token", refresh, cfg.JWT.RefreshDays*24*60*60)
}

// SetAccessCookie writes only the access cookie (used by refresh).
func SetAccessCookie(c *fiber.Ctx, cfg *config.Config, access string) {
	setCookie(c, cfg, "access_token", access, cfg.JWT.AccessMin*60)
}

// ClearAuthCookies expires both cookies.
func ClearAuthCookies(c *fiber.Ctx, cfg *config.Config) {
	setCookie(c, cfg, "access_token", "", -1)
	setCookie(c, cfg, "refresh_token", "", -1)
}
