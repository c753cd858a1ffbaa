package session

import (
	"context"
	"log/slog"

	"struggles/internal/middleware"
	"struggles/internal/models"
)

// UserLookup loads a user by ID.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Guard turns a session token into the signed-in user.
type Guard struct {
	sessions *Manager
	users    UserLookup
}

func NewGuard(sessions *Manager, users UserLookup) *Guard {
	return &Guard{sessions: sessions, users: users}
}

// ResolveCurrentUser returns the user behind token, or nil when the token is
// missing, invalid, revoked or names a user that no longer exists. Store
// failures also yield nil so pages render as signed out rather than failing.
func (g *Guard) ResolveCurrentUser(ctx context.Context, token string) *models.User {
	if g == nil || token == "" {
		return nil
	}
	claims, err := g.sessions.Verify(ctx, token)
	if err != nil {
		return nil
	}
	user, err := g.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if !models.HasCode(err, models.CodeNotFound) {
			middleware.Logger.WarnContext(ctx, "resolve current user failed",
				slog.String("user_id", claims.Subject), slog.String("error", err.Error()))
		}
		return nil
	}
	return user
}
