package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/CragHollow/deckforge/internal/middleware"
	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
)

type ShareHandler struct {
	shares     *services.DeckShareService
	guestDecks *services.GuestDeckService
	deckStore  services.DeckStore
}

func NewShareHandler(shares *services.DeckShareService, guestDecks *services.GuestDeckService, deckStore services.DeckStore) *ShareHandler {
	return &ShareHandler{
		shares:     shares,
		guestDecks: guestDecks,
		deckStore:  deckStore,
	}
}

type ShareDeckRequest struct {
	ExpiresInDays *int `json:"expires_in_days,omitempty"`
}

type ShareStatusResponse struct {
	Enabled        bool       `json:"enabled"`
	Expired        bool       `json:"expired,omitempty"`
	Token          string     `json:"token,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	AccessCount    int        `json:"access_count"`
}

type SharedDeckResponse struct {
	Deck models.DeckData `json:"deck"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	var req ShareDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInDays != nil {
		days := *req.ExpiresInDays
		if days < 0 {
			writeError(w, http.StatusBadRequest, "expires_in_days must be zero or positive")
			return
		}
		if days != 0 {
			if days < services.ShareExpiryMinDays || days > services.ShareExpiryMaxDays {
				writeError(w, http.StatusBadRequest, "expires_in_days is out of range")
				return
			}
			t := time.Now().Add(time.Duration(days) * 24 * time.Hour)
			expiresAt = &t
		}
	}

	deck := h.lookupOwnedDeck(r, identity, deckID)
	if deck == nil {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}

	op := services.Operation{Name: "share.create", Persists: true}
	view := deck.View()
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	share, err := h.shares.CreateOrRotateShare(r.Context(), identity.Authz.RequesterID, deckID, expiresAt)
	if err != nil {
		log.Printf("Error creating share: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, ShareStatusResponse{
		Enabled:        true,
		Token:          share.Token,
		CreatedAt:      &share.CreatedAt,
		ExpiresAt:      share.ExpiresAt,
		LastAccessedAt: share.LastAccessedAt,
		AccessCount:    share.AccessCount,
	})
}

func (h *ShareHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	deck := h.lookupOwnedDeck(r, identity, deckID)
	if deck == nil {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}

	share, err := h.shares.GetShareStatus(r.Context(), deckID)
	if errors.Is(err, services.ErrShareNotFound) {
		writeJSON(w, http.StatusOK, ShareStatusResponse{Enabled: false})
		return
	}
	if err != nil {
		log.Printf("Error fetching share status: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	expired := share.ExpiresAt != nil && share.ExpiresAt.Before(time.Now())
	writeJSON(w, http.StatusOK, ShareStatusResponse{
		Enabled:        !expired,
		Expired:        expired,
		Token:          share.Token,
		CreatedAt:      &share.CreatedAt,
		ExpiresAt:      share.ExpiresAt,
		LastAccessedAt: share.LastAccessedAt,
		AccessCount:    share.AccessCount,
	})
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	deck := h.lookupOwnedDeck(r, identity, deckID)
	if deck == nil {
		writeError(w, http.StatusNotFound, "Deck not found")
		return
	}

	op := services.Operation{Name: "share.revoke", Persists: true}
	view := deck.View()
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	if err := h.shares.RevokeShare(r.Context(), deckID); err != nil && !errors.Is(err, services.ErrShareNotFound) {
		log.Printf("Error revoking share: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve serves the public read-only view behind a share token. No identity
// is required; the token itself is the capability.
func (h *ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}

	share, err := h.shares.ResolveToken(r.Context(), token)
	if errors.Is(err, services.ErrShareNotFound) {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}
	if err != nil {
		log.Printf("Error resolving share token: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	deck := h.loadDeckForOwner(r, share.OwnerID, share.DeckID)
	if deck == nil {
		writeError(w, http.StatusNotFound, "Share not found")
		return
	}
	deck.Metadata.IsOwner = false
	writeJSON(w, http.StatusOK, SharedDeckResponse{Deck: *deck})
}

// lookupOwnedDeck fetches the ownership view for share management. It runs
// before the gate, so the guest-store path must not refresh expiration: a
// denied share mutation has to leave the deck's lifetime untouched.
func (h *ShareHandler) lookupOwnedDeck(r *http.Request, identity middleware.Identity, deckID string) *models.DeckData {
	if models.IsGuestDeckID(deckID) {
		return h.guestDecks.PeekDeck(identity.SessionID, deckID)
	}
	return h.loadDeckForOwner(r, identity.Authz.RequesterID, deckID)
}

func (h *ShareHandler) loadDeckForOwner(r *http.Request, ownerID, deckID string) *models.DeckData {
	if deckID == "" {
		return nil
	}
	if models.IsGuestDeckID(deckID) {
		return h.guestDecks.GetDeck(ownerID, deckID)
	}
	if h.deckStore == nil {
		return nil
	}
	deck, err := h.deckStore.GetDeck(r.Context(), ownerID, deckID)
	if err != nil {
		log.Printf("Error fetching deck %s: %v", deckID, err)
		return nil
	}
	return deck
}
