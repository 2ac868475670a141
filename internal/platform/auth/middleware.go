package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey selects HS256 validation instead of JWKS.
	SigningKey []byte
	Skipper    func(echo.Context) bool
}

// JWTMiddleware validates the bearer token and stores the resulting
// Principal on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var keyFunc jwt.Keyfunc
	methods := []string{"RS256"}
	if len(cfg.SigningKey) > 0 {
		methods = []string{"HS256"}
		keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		keyFunc = NewJWKSCache(cfg.JWKSURL, defaultJWKSCacheTTL).KeyFunc()
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(parts[1], claims, keyFunc)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			p, err := principalFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

func principalFromClaims(claims *Claims) (Principal, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("token subject is not a user id")
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return Principal{}, fmt.Errorf("token role %q is not recognised", claims.Role)
	}
	return Principal{ID: id, Role: role}, nil
}

func setPrincipal(c echo.Context, p Principal) {
	c.Set("user_id", p.ID.String())
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
}

// Development headers let a local client act as any user without a token.
const (
	DevUserHeader = "X-Dev-User-ID"
	DevRoleHeader = "X-Dev-Role"
)

// DevAuthMiddleware is a permissive middleware for development. Requests
// without dev headers act as an admin with the nil user id.
func DevAuthMiddleware(skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			p := Principal{ID: uuid.Nil, Role: RoleAdmin}
			if raw := c.Request().Header.Get(DevUserHeader); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+DevUserHeader)
				}
				p.ID = id
			}
			if raw := c.Request().Header.Get(DevRoleHeader); raw != "" {
				role := Role(raw)
				if !role.Valid() {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid "+DevRoleHeader)
				}
				p.Role = role
			}
			setPrincipal(c, p)
			return next(c)
		}
	}
}

// IssueToken signs an HS256 token for p. Used by the dev token command and
// tests.
func IssueToken(key []byte, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(p.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
