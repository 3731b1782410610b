package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rl1809/lottery-cart/internal/core/clock"
)

const sessionKey = "session_id"

var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed HS256 JWT whose subject is the session id.
type SessionToken struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
}

type Sessions struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewSessions(secret string, ttl time.Duration, clk clock.Clock) *Sessions {
	if clk == nil {
		clk = clock.System()
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, clock: clk}
}

// Issue starts a new anonymous session.
func (s *Sessions) Issue() (SessionToken, error) {
	now := s.clock.Now().UTC()
	exp := now.Add(s.ttl)
	id := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return SessionToken{}, fmt.Errorf("sign session: %w", err)
	}
	return SessionToken{Token: signed, SessionID: id, ExpiresAt: exp}, nil
}

// Parse verifies raw and returns its session id.
func (s *Sessions) Parse(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidSession
	}
	if claims.Subject == "" {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// Middleware validates the bearer token and stores the session id on the
// echo context.
func (s *Sessions) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			id, err := s.Parse(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(sessionKey, id)
			return next(c)
		}
	}
}

func sessionID(c echo.Context) string {
	id, _ := c.Get(sessionKey).(string)
	return id
}
