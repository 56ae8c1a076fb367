package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CragHollow/deckforge/internal/logging"
	"github.com/CragHollow/deckforge/internal/models"
)

const (
	ShareExpiryMinDays = 1
	ShareExpiryMaxDays = 365
)

var ErrShareNotFound = errors.New("share not found")

// DeckShare is a read-only capability over a deck. Possession of the token
// grants viewing, never mutation: the identity middleware marks any request
// carrying a valid token as read-only before it reaches the gate.
type DeckShare struct {
	DeckID         string     `json:"deck_id"`
	OwnerID        string     `json:"owner_id"`
	Token          string     `json:"token"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	AccessCount    int        `json:"access_count"`
}

type DeckShareService struct {
	db DBConn
}

func NewDeckShareService(db DBConn) *DeckShareService {
	return &DeckShareService{db: db}
}

// CreateOrRotateShare issues a fresh token for a deck, replacing any previous
// one. Ownership is the caller's responsibility: the authorization gate must
// have allowed the operation before this runs.
func (s *DeckShareService) CreateOrRotateShare(ctx context.Context, ownerID, deckID string, expiresAt *time.Time) (*DeckShare, error) {
	token, err := generateShareToken()
	if err != nil {
		return nil, err
	}

	share := &DeckShare{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO deck_shares (deck_id, owner_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (deck_id)
		DO UPDATE SET token = EXCLUDED.token,
		              owner_id = EXCLUDED.owner_id,
		              expires_at = EXCLUDED.expires_at,
		              created_at = NOW(),
		              last_accessed_at = NULL,
		              access_count = 0
		RETURNING deck_id, owner_id, token, created_at, expires_at, last_accessed_at, access_count
	`, deckID, ownerID, token, expiresAt).Scan(
		&share.DeckID,
		&share.OwnerID,
		&share.Token,
		&share.CreatedAt,
		&share.ExpiresAt,
		&share.LastAccessedAt,
		&share.AccessCount,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting deck share: %w", err)
	}

	return share, nil
}

func (s *DeckShareService) GetShareStatus(ctx context.Context, deckID string) (*DeckShare, error) {
	share := &DeckShare{}
	err := s.db.QueryRow(ctx, `
		SELECT deck_id, owner_id, token, created_at, expires_at, last_accessed_at, access_count
		FROM deck_shares
		WHERE deck_id = $1
	`, deckID).Scan(
		&share.DeckID,
		&share.OwnerID,
		&share.Token,
		&share.CreatedAt,
		&share.ExpiresAt,
		&share.LastAccessedAt,
		&share.AccessCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading deck share: %w", err)
	}

	return share, nil
}

func (s *DeckShareService) RevokeShare(ctx context.Context, deckID string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM deck_shares WHERE deck_id = $1", deckID); err != nil {
		return fmt.Errorf("revoking deck share: %w", err)
	}
	return nil
}

// ResolveToken verifies a share token and returns the grant it carries. An
// unknown or expired token is indistinguishable from no token. A successful
// resolve records the access, at most once per hour per token.
func (s *DeckShareService) ResolveToken(ctx context.Context, token string) (*DeckShare, error) {
	share := &DeckShare{}
	err := s.db.QueryRow(ctx, `
		SELECT deck_id, owner_id, token, created_at, expires_at, last_accessed_at, access_count
		FROM deck_shares
		WHERE token = $1
	`, token).Scan(
		&share.DeckID,
		&share.OwnerID,
		&share.Token,
		&share.CreatedAt,
		&share.ExpiresAt,
		&share.LastAccessedAt,
		&share.AccessCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving share token: %w", err)
	}
	if share.ExpiresAt != nil && share.ExpiresAt.Before(time.Now()) {
		return nil, ErrShareNotFound
	}

	if err := s.touchShareToken(ctx, token); err != nil {
		logging.Warn("Failed to record share access", map[string]interface{}{"error": err.Error()})
	}

	return share, nil
}

// ShareView projects only what a viewer may learn about a grant.
func (share *DeckShare) View() models.DeckView {
	return models.DeckView{ID: share.DeckID, OwnerID: share.OwnerID}
}

func (s *DeckShareService) touchShareToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deck_shares
		 SET last_accessed_at = NOW(),
		     access_count = access_count + 1
		 WHERE token = $1
		   AND (last_accessed_at IS NULL OR last_accessed_at < NOW() - INTERVAL '1 hour')`,
		token,
	)
	if err != nil {
		return fmt.Errorf("touch share token: %w", err)
	}
	return nil
}

func generateShareToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
