package services

import (
	"context"

	"github.com/CragHollow/deckforge/internal/models"
)

// DeckStore is the durable home of authenticated users' decks. The engine
// behind it lives outside this repository; handlers receive an
// implementation from the hosting deployment and fall back to "not found"
// when none is wired. Guest decks never pass through here; they are routed
// to the in-memory guest store by id prefix.
type DeckStore interface {
	GetDeck(ctx context.Context, ownerID, deckID string) (*models.DeckData, error)
	GetAllDecks(ctx context.Context, ownerID string) ([]models.DeckData, error)
	CreateDeck(ctx context.Context, ownerID string, deck models.DeckData) (string, error)
	UpdateDeck(ctx context.Context, ownerID, deckID string, deck models.DeckData) error
	DeleteDeck(ctx context.Context, ownerID, deckID string) error
}
