package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/CragHollow/deckforge/internal/models"
)

var ErrLayoutNotFound = errors.New("layout preference not found")

// PreferenceService persists per-deck UI state for authenticated users: the
// expansion/collapse map keyed by card-category name, and the slider/layout
// position. Payloads are opaque here; whether a write is allowed at all is
// the authorization gate's call, made before these methods run.
type PreferenceService struct {
	db DB
}

func NewPreferenceService(db DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// SaveSectionPrefs replaces the expansion map for one deck in a single
// transaction, so readers never observe a half-applied map.
func (s *PreferenceService) SaveSectionPrefs(ctx context.Context, userID, deckID string, prefs models.DeckSectionPrefs) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback is a no-op after commit

	if _, err := tx.Exec(ctx,
		"DELETE FROM deck_section_prefs WHERE user_id = $1 AND deck_id = $2",
		userID, deckID,
	); err != nil {
		return fmt.Errorf("clearing section prefs: %w", err)
	}

	for section, expanded := range prefs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO deck_section_prefs (user_id, deck_id, section, expanded)
			 VALUES ($1, $2, $3, $4)`,
			userID, deckID, section, expanded,
		); err != nil {
			return fmt.Errorf("inserting section pref: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing section prefs: %w", err)
	}
	return nil
}

func (s *PreferenceService) GetSectionPrefs(ctx context.Context, userID, deckID string) (models.DeckSectionPrefs, error) {
	rows, err := s.db.Query(ctx,
		"SELECT section, expanded FROM deck_section_prefs WHERE user_id = $1 AND deck_id = $2",
		userID, deckID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading section prefs: %w", err)
	}
	defer rows.Close()

	prefs := models.DeckSectionPrefs{}
	for rows.Next() {
		var section string
		var expanded bool
		if err := rows.Scan(&section, &expanded); err != nil {
			return nil, fmt.Errorf("scanning section pref: %w", err)
		}
		prefs[section] = expanded
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating section prefs: %w", err)
	}

	return prefs, nil
}

func (s *PreferenceService) SaveLayoutPref(ctx context.Context, userID, deckID string, sliderPosition float64) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO deck_layout_prefs (user_id, deck_id, slider_position, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, deck_id)
		 DO UPDATE SET slider_position = EXCLUDED.slider_position, updated_at = NOW()`,
		userID, deckID, sliderPosition,
	); err != nil {
		return fmt.Errorf("saving layout pref: %w", err)
	}
	return nil
}

func (s *PreferenceService) GetLayoutPref(ctx context.Context, userID, deckID string) (*models.DeckLayoutPref, error) {
	pref := &models.DeckLayoutPref{DeckID: deckID}
	err := s.db.QueryRow(ctx,
		"SELECT slider_position FROM deck_layout_prefs WHERE user_id = $1 AND deck_id = $2",
		userID, deckID,
	).Scan(&pref.SliderPosition)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLayoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading layout pref: %w", err)
	}
	return pref, nil
}
