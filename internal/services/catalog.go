package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/CragHollow/deckforge/internal/models"
)

var (
	ErrCardNotFound    = errors.New("card not found")
	ErrInvalidCardType = errors.New("invalid card type")
)

// CatalogService serves read-only card lookups. Full-text search over the
// catalog lives in a separate layer; this service only does keyed and
// type/set-filtered reads.
type CatalogService struct {
	db DBConn
}

func NewCatalogService(db DBConn) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) GetCard(ctx context.Context, cardID string) (*models.Card, error) {
	card := &models.Card{}
	err := s.db.QueryRow(ctx,
		`SELECT id, title, type, rarity, set_code, image_url, alternate_images
		 FROM cards WHERE id = $1`,
		cardID,
	).Scan(&card.ID, &card.Title, &card.Type, &card.Rarity, &card.SetCode, &card.ImageURL, &card.AlternateImages)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting card by id: %w", err)
	}
	return card, nil
}

// ListCards returns catalog entries, optionally restricted to one card type
// and/or one set. Filters are exact matches, not search.
func (s *CatalogService) ListCards(ctx context.Context, cardType *models.CardType, setCode *string) ([]models.Card, error) {
	if cardType != nil && !models.IsValidCardType(*cardType) {
		return nil, ErrInvalidCardType
	}

	query := `SELECT id, title, type, rarity, set_code, image_url, alternate_images FROM cards`
	args := []any{}
	where := ""
	if cardType != nil {
		args = append(args, *cardType)
		where = fmt.Sprintf(" WHERE type = $%d", len(args))
	}
	if setCode != nil {
		args = append(args, *setCode)
		if where == "" {
			where = fmt.Sprintf(" WHERE set_code = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND set_code = $%d", len(args))
		}
	}
	query += where + " ORDER BY id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	cards := make([]models.Card, 0)
	for rows.Next() {
		var card models.Card
		if err := rows.Scan(&card.ID, &card.Title, &card.Type, &card.Rarity, &card.SetCode, &card.ImageURL, &card.AlternateImages); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cards: %w", err)
	}

	return cards, nil
}

// ListSets returns the distinct set codes present in the catalog.
func (s *CatalogService) ListSets(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT set_code FROM cards ORDER BY set_code`)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}
	defer rows.Close()

	sets := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning set code: %w", err)
		}
		sets = append(sets, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sets: %w", err)
	}

	return sets, nil
}
