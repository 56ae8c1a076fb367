package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type CardListResponse struct {
	Cards []models.Card `json:"cards"`
}

type SetListResponse struct {
	Sets []string `json:"sets"`
}

func (h *CatalogHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	var cardType *models.CardType
	if raw := r.URL.Query().Get("type"); raw != "" {
		ct := models.CardType(raw)
		if !models.IsValidCardType(ct) {
			writeError(w, http.StatusBadRequest, "Invalid card type")
			return
		}
		cardType = &ct
	}

	var setCode *string
	if raw := r.URL.Query().Get("set"); raw != "" {
		setCode = &raw
	}

	cards, err := h.catalog.ListCards(r.Context(), cardType, setCode)
	if err != nil {
		log.Printf("Error listing cards: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, CardListResponse{Cards: cards})
}

func (h *CatalogHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("id")
	if cardID == "" {
		writeError(w, http.StatusBadRequest, "Card id is required")
		return
	}

	card, err := h.catalog.GetCard(r.Context(), cardID)
	if errors.Is(err, services.ErrCardNotFound) {
		writeError(w, http.StatusNotFound, "Card not found")
		return
	}
	if err != nil {
		log.Printf("Error fetching card %s: %v", cardID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CatalogHandler) ListSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.catalog.ListSets(r.Context())
	if err != nil {
		log.Printf("Error listing sets: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if sets == nil {
		sets = []string{}
	}
	writeJSON(w, http.StatusOK, SetListResponse{Sets: sets})
}
