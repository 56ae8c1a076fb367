package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/CragHollow/deckforge/internal/middleware"
	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
)

const maxDeckNameLength = 100

type DeckHandler struct {
	guestDecks *services.GuestDeckService
	deckStore  services.DeckStore
}

func NewDeckHandler(guestDecks *services.GuestDeckService, deckStore services.DeckStore) *DeckHandler {
	return &DeckHandler{
		guestDecks: guestDecks,
		deckStore:  deckStore,
	}
}

type DeckRequest struct {
	Name               string                 `json:"name"`
	Description        string                 `json:"description,omitempty"`
	Cards              []models.DeckCard      `json:"cards"`
	ReserveCharacterID *string                `json:"reserve_character_id,omitempty"`
	UIState            map[string]interface{} `json:"ui_state,omitempty"`
}

type CreateDeckResponse struct {
	ID string `json:"id"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var req DeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateDeckRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	durable := identity.Authz.Role != models.RoleGuest
	op := services.Operation{Name: "deck.create", Persists: durable}
	view := models.DeckView{OwnerID: identity.Authz.RequesterID}
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	deck := deckFromRequest(&req)

	if !durable {
		id := h.guestDecks.CreateDeck(identity.SessionID, deck)
		writeJSON(w, http.StatusCreated, CreateDeckResponse{ID: id})
		return
	}

	if h.deckStore == nil {
		writeError(w, http.StatusServiceUnavailable, "Deck storage is not available")
		return
	}
	id, err := h.deckStore.CreateDeck(r.Context(), identity.Authz.RequesterID, deck)
	if err != nil {
		log.Printf("Error creating deck: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, CreateDeckResponse{ID: id})
}

func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	deck := h.lookupDeck(r, identity, deckID)
	if deck == nil {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}
	writeJSON(w, http.StatusOK, deck)
}

func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	if identity.Authz.Role == models.RoleGuest {
		decks := h.guestDecks.GetAllDecksForSession(identity.SessionID)
		writeJSON(w, http.StatusOK, decks)
		return
	}

	if h.deckStore == nil {
		writeJSON(w, http.StatusOK, []models.DeckData{})
		return
	}
	decks, err := h.deckStore.GetAllDecks(r.Context(), identity.Authz.RequesterID)
	if err != nil {
		log.Printf("Error listing decks: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if decks == nil {
		decks = []models.DeckData{}
	}
	writeJSON(w, http.StatusOK, decks)
}

func (h *DeckHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	var req DeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateDeckRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	existing := h.peekDeck(r, identity, deckID)
	if existing == nil {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}

	op := services.Operation{Name: "deck.update", Persists: !models.IsGuestDeckID(deckID)}
	view := existing.View()
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	deck := deckFromRequest(&req)

	if models.IsGuestDeckID(deckID) {
		if !h.guestDecks.UpdateDeck(identity.SessionID, deckID, deck) {
			writeError(w, http.StatusNotFound, "Deck not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.deckStore.UpdateDeck(r.Context(), identity.Authz.RequesterID, deckID, deck); err != nil {
		log.Printf("Error updating deck: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	existing := h.peekDeck(r, identity, deckID)
	if existing == nil {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}

	op := services.Operation{Name: "deck.delete", Persists: !models.IsGuestDeckID(deckID)}
	view := existing.View()
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	if models.IsGuestDeckID(deckID) {
		if !h.guestDecks.DeleteDeck(identity.SessionID, deckID) {
			writeError(w, http.StatusNotFound, "Deck not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.deckStore.DeleteDeck(r.Context(), identity.Authz.RequesterID, deckID); err != nil {
		log.Printf("Error deleting deck: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cleanup drops every guest deck belonging to the caller's session. Wired to
// DELETE /api/decks so the client can discard its scratch space on sign-out.
func (h *DeckHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	op := services.Operation{Name: "deck.cleanup", Persists: false}
	view := models.DeckView{OwnerID: identity.Authz.RequesterID}
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	removed := h.guestDecks.CleanupSessionDecks(identity.SessionID)
	writeJSON(w, http.StatusOK, CleanupResponse{Removed: removed})
}

func (h *DeckHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity.Authz.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}
	writeJSON(w, http.StatusOK, h.guestDecks.GetStats())
}

// lookupDeck routes by id prefix: guest ids go to the in-memory store scoped
// to the caller's session, everything else to the durable store. A missing
// durable store reads as not found.
func (h *DeckHandler) lookupDeck(r *http.Request, identity middleware.Identity, deckID string) *models.DeckData {
	if deckID == "" {
		return nil
	}
	if models.IsGuestDeckID(deckID) {
		return h.guestDecks.GetDeck(identity.SessionID, deckID)
	}
	if h.deckStore == nil {
		return nil
	}
	deck, err := h.deckStore.GetDeck(r.Context(), identity.Authz.RequesterID, deckID)
	if err != nil {
		log.Printf("Error fetching deck %s: %v", deckID, err)
		return nil
	}
	return deck
}

// peekDeck is lookupDeck without the guest-store expiration refresh. The
// ownership view fetched before the gate runs must not change store state:
// a denied mutation would otherwise still extend the deck's lifetime.
func (h *DeckHandler) peekDeck(r *http.Request, identity middleware.Identity, deckID string) *models.DeckData {
	if models.IsGuestDeckID(deckID) {
		return h.guestDecks.PeekDeck(identity.SessionID, deckID)
	}
	return h.lookupDeck(r, identity, deckID)
}

func deckFromRequest(req *DeckRequest) models.DeckData {
	return models.DeckData{
		Metadata: models.DeckMetadata{
			Name:               strings.TrimSpace(req.Name),
			Description:        req.Description,
			ReserveCharacterID: req.ReserveCharacterID,
			UIState:            req.UIState,
		},
		Cards: req.Cards,
	}
}

func validateDeckRequest(req *DeckRequest) string {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "Deck name is required"
	}
	if len(name) > maxDeckNameLength {
		return "Deck name is too long"
	}
	for _, card := range req.Cards {
		if card.CardID == "" {
			return "Card id is required"
		}
		if !models.IsValidCardType(card.Type) {
			return "Invalid card type: " + string(card.Type)
		}
		if card.Quantity < 1 {
			return "Card quantity must be at least 1"
		}
	}
	return ""
}

func writeDenial(w http.ResponseWriter, decision services.Decision) {
	switch decision.Reason {
	case services.DenyReadOnlyMode:
		writeError(w, http.StatusForbidden, "Deck is read-only")
	case services.DenyGuestRole:
		writeError(w, http.StatusForbidden, "Sign in to save decks permanently")
	default:
		writeError(w, http.StatusForbidden, "Access denied")
	}
}
