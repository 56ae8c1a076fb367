package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/CragHollow/deckforge/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

const userSessionKeyPrefix = "session:"

// UserSession is the identity an upstream auth service attached to a token.
// Tokens are issued elsewhere; this service only resolves them.
type UserSession struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
}

type SessionService struct {
	redis RedisClient
}

func NewSessionService(redis RedisClient) *SessionService {
	return &SessionService{redis: redis}
}

// Resolve looks up an upstream-issued session token. A missing or malformed
// record resolves to ErrSessionNotFound; the caller falls back to guest
// identity.
func (s *SessionService) Resolve(ctx context.Context, token string) (*UserSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionNotFound
	}

	raw, err := s.redis.Get(ctx, userSessionKeyPrefix+token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	session := &UserSession{}
	if err := json.Unmarshal([]byte(raw), session); err != nil {
		return nil, fmt.Errorf("decoding session record: %w", err)
	}
	if session.UserID == "" {
		return nil, ErrSessionNotFound
	}
	if session.Role != models.RoleUser && session.Role != models.RoleAdmin {
		session.Role = models.RoleUser
	}

	return session, nil
}

// Invalidate drops a session token, e.g. when upstream reports it revoked.
func (s *SessionService) Invalidate(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, userSessionKeyPrefix+token); err != nil {
		return fmt.Errorf("deleting session record: %w", err)
	}
	return nil
}
