package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
	"github.com/CragHollow/deckforge/internal/testutil"
)

type cardRows struct {
	cards []models.Card
	idx   int
}

func (r *cardRows) Close()     {}
func (r *cardRows) Err() error { return nil }

func (r *cardRows) Next() bool {
	if r.idx >= len(r.cards) {
		return false
	}
	r.idx++
	return true
}

func (r *cardRows) Scan(dest ...any) error {
	card := r.cards[r.idx-1]
	*(dest[0].(*string)) = card.ID
	*(dest[1].(*string)) = card.Title
	*(dest[2].(*models.CardType)) = card.Type
	*(dest[3].(*string)) = card.Rarity
	*(dest[4].(*string)) = card.SetCode
	*(dest[5].(*string)) = card.ImageURL
	*(dest[6].(*[]string)) = card.AlternateImages
	return nil
}

func TestCatalogHandler_ListCards(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (services.Rows, error) {
			return &cardRows{cards: []models.Card{
				{ID: "c-001", Title: "Captain Kirk", Type: models.CardTypeCharacter, SetCode: "PREM"},
			}}, nil
		},
	}
	handler := NewCatalogHandler(services.NewCatalogService(db))

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards?type=character", nil)
	rr := httptest.NewRecorder()

	handler.ListCards(rr, req)
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	parsed := testutil.ParseJSONResponse(t, rr.Body.Bytes())
	cards, ok := parsed["cards"].([]interface{})
	if !ok || len(cards) != 1 {
		t.Fatalf("expected one card, got %v", parsed["cards"])
	}
}

func TestCatalogHandler_ListCardsRejectsBadType(t *testing.T) {
	handler := NewCatalogHandler(services.NewCatalogService(&fakeDB{}))

	req := testutil.NewTestRequest(http.MethodGet, "/api/cards?type=starship", nil)
	rr := httptest.NewRecorder()

	handler.ListCards(rr, req)
	assertErrorResponse(t, rr, http.StatusBadRequest, "Invalid card type")
}

func TestCatalogHandler_GetCardNotFound(t *testing.T) {
	handler := NewCatalogHandler(services.NewCatalogService(&fakeDB{}))

	req := withPathValue(testutil.NewTestRequest(http.MethodGet, "/api/cards/nope", nil), "id", "nope")
	rr := httptest.NewRecorder()

	handler.GetCard(rr, req)
	assertErrorResponse(t, rr, http.StatusNotFound, "Card not found")
}
