// Package session issues, verifies and revokes signed session tokens and
// resolves them to the signed-in user.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"struggles/internal/middleware"
	"struggles/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	Issuer   = "struggles-api"
	Audience = "struggles-web"

	// TicketTTL bounds how long a websocket ticket can wait to be redeemed.
	TicketTTL = 60 * time.Second

	blacklistPrefix = "blacklist:"
	ticketPrefix    = "ws_ticket:"
)

var (
	ErrInvalidToken = errors.New("invalid or expired session token")
	ErrRevoked      = errors.New("session token has been revoked")
	ErrNoSecret     = errors.New("session secret not configured")
)

// Claims is the payload carried by a session token.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs HS256 session tokens. Revocations and websocket tickets live
// in Redis; without a client revocation is a no-op and tickets are unavailable.
type Manager struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration, rdb *redis.Client) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		rdb:    rdb,
		now:    time.Now,
	}
}

// TTL is the lifetime of an issued token.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for user.
func (m *Manager) Issue(user *models.User) (string, *Claims, error) {
	if len(m.secret) == 0 {
		return "", nil, ErrNoSecret
	}
	now := m.now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses token and checks signature, lifetime, issuer, audience and
// revocation. A Redis failure during the revocation check is logged and the
// token is accepted.
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	if token == "" || len(m.secret) == 0 {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	if m.rdb != nil && claims.ID != "" {
		n, err := m.rdb.Exists(ctx, blacklistPrefix+claims.ID).Result()
		if err != nil {
			middleware.RedisErrors.WithLabelValues("session_revocation_check").Inc()
			middleware.Logger.WarnContext(ctx, "session revocation check failed", slog.String("error", err.Error()))
		} else if n > 0 {
			return nil, ErrRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token until it would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.rdb == nil || claims == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(m.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := m.rdb.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return models.NewUnavailableError(err)
	}
	return nil
}

// IssueTicket returns a short-lived single-use ticket a browser can pass as a
// query parameter when opening a websocket.
func (m *Manager) IssueTicket(ctx context.Context, userID string) (string, error) {
	if m.rdb == nil {
		return "", models.NewUnavailableError(errors.New("ticket store not configured"))
	}
	ticket := uuid.NewString()
	if err := m.rdb.Set(ctx, ticketPrefix+ticket, userID, TicketTTL).Err(); err != nil {
		return "", models.NewUnavailableError(err)
	}
	return ticket, nil
}

// RedeemTicket consumes a ticket and returns the user it was issued to.
func (m *Manager) RedeemTicket(ctx context.Context, ticket string) (string, error) {
	if m.rdb == nil || ticket == "" {
		return "", ErrInvalidToken
	}
	userID, err := m.rdb.GetDel(ctx, ticketPrefix+ticket).Result()
	if err != nil || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
