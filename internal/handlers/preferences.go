package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/CragHollow/deckforge/internal/middleware"
	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
)

type PreferenceHandler struct {
	prefs *services.PreferenceService
}

func NewPreferenceHandler(prefs *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

type SectionPrefsRequest struct {
	Sections models.DeckSectionPrefs `json:"sections"`
}

type LayoutPrefRequest struct {
	SliderPosition float64 `json:"slider_position"`
}

type LayoutPrefResponse struct {
	DeckID         string  `json:"deck_id"`
	SliderPosition float64 `json:"slider_position"`
}

func (h *PreferenceHandler) SaveSections(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	var req SectionPrefsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	op := services.Operation{Name: "prefs.sections.save", Persists: true}
	view := models.DeckView{ID: deckID, OwnerID: identity.Authz.RequesterID}
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	if err := h.prefs.SaveSectionPrefs(r.Context(), identity.Authz.RequesterID, deckID, req.Sections); err != nil {
		log.Printf("Error saving section preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PreferenceHandler) GetSections(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	prefs, err := h.prefs.GetSectionPrefs(r.Context(), identity.Authz.RequesterID, deckID)
	if err != nil {
		log.Printf("Error fetching section preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, SectionPrefsRequest{Sections: prefs})
}

func (h *PreferenceHandler) SaveLayout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	var req LayoutPrefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SliderPosition < 0 || req.SliderPosition > 1 {
		writeError(w, http.StatusBadRequest, "slider_position must be between 0 and 1")
		return
	}

	op := services.Operation{Name: "prefs.layout.save", Persists: true}
	view := models.DeckView{ID: deckID, OwnerID: identity.Authz.RequesterID}
	if decision := services.DecideMutation(identity.Authz, op, view); !decision.Allowed {
		services.LogDenial(identity.Authz, op, view, decision)
		writeDenial(w, decision)
		return
	}

	if err := h.prefs.SaveLayoutPref(r.Context(), identity.Authz.RequesterID, deckID, req.SliderPosition); err != nil {
		log.Printf("Error saving layout preference: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PreferenceHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	deckID := r.PathValue("id")

	pref, err := h.prefs.GetLayoutPref(r.Context(), identity.Authz.RequesterID, deckID)
	if errors.Is(err, services.ErrLayoutNotFound) {
		writeError(w, http.StatusNotFound, "Layout preference not found")
		return
	}
	if err != nil {
		log.Printf("Error fetching layout preference: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, LayoutPrefResponse{
		DeckID:         pref.DeckID,
		SliderPosition: pref.SliderPosition,
	})
}
