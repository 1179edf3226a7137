package repositories

import (
	"context"
	"dsatracker/internal/services"
	"errors"
	"fmt"
	"time"
)

var ErrSessionNotFound = errors.New("refresh token not found")

// SessionRepository keeps issued refresh tokens in the cache so they can be
// revoked on logout.
type SessionRepository interface {
	StoreRefreshToken(ctx context.Context, userID string, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, token string) (string, error)
	RevokeToken(ctx context.Context, token string) error
}

type sessionRepository struct {
	cache services.Cache
}

func NewSessionRepository(cache services.Cache) SessionRepository {
	return &sessionRepository{cache: cache}
}

func refreshTokenKey(token string) string {
	return fmt.Sprintf("refresh_token:%s", token)
}

func (r *sessionRepository) StoreRefreshToken(ctx context.Context, userID string, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("token expiration is in the past")
	}

	if err := r.cache.Set(ctx, refreshTokenKey(token), userID, ttl); err != nil {
		return fmt.Errorf("failed to store refresh token in cache: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetRefreshToken(ctx context.Context, token string) (string, error) {
	var userID string
	if err := r.cache.Get(ctx, refreshTokenKey(token), &userID); err != nil {
		if errors.Is(err, services.ErrCacheMiss) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to read refresh token from cache: %w", err)
	}
	return userID, nil
}

func (r *sessionRepository) RevokeToken(ctx context.Context, token string) error {
	if err := r.cache.Delete(ctx, refreshTokenKey(token)); err != nil {
		return fmt.Errorf("failed to revoke token from cache: %w", err)
	}
	return nil
}
