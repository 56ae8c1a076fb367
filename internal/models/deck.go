package models

import (
	"strings"
	"time"
)

// GuestDeckIDPrefix marks deck identifiers owned by the in-memory guest
// store. Callers route on this prefix to pick the right store.
const GuestDeckIDPrefix = "guest_"

// IsGuestDeckID reports whether an identifier belongs to the guest store.
func IsGuestDeckID(id string) bool {
	return strings.HasPrefix(id, GuestDeckIDPrefix)
}

// CardType is the fixed category set a deck slot can hold.
type CardType string

const (
	CardTypeCharacter CardType = "character"
	CardTypeLocation  CardType = "location"
	CardTypeMission   CardType = "mission"
	CardTypeEvent     CardType = "event"
	CardTypePower     CardType = "power"
	CardTypeEquipment CardType = "equipment"
	CardTypeInterrupt CardType = "interrupt"
)

// ValidCardTypes lists every card category in display order.
var ValidCardTypes = []CardType{
	CardTypeCharacter,
	CardTypeLocation,
	CardTypeMission,
	CardTypeEvent,
	CardTypePower,
	CardTypeEquipment,
	CardTypeInterrupt,
}

func IsValidCardType(t CardType) bool {
	for _, v := range ValidCardTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DeckCard is one slot in a deck's card list. A zero quantity means the slot
// should have been pruned by the caller; the stores keep whatever they are
// given.
type DeckCard struct {
	CardID                 string   `json:"card_id"`
	Type                   CardType `json:"type"`
	Quantity               int      `json:"quantity"`
	SelectedAlternateImage *string  `json:"selected_alternate_image,omitempty"`
}

// DeckMetadata carries everything about a deck except its card list. IsOwner
// is computed per request relative to the caller and never stored.
type DeckMetadata struct {
	ID                 string                 `json:"id"`
	Name               string                 `json:"name"`
	Description        string                 `json:"description,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	LastModifiedAt     time.Time              `json:"last_modified_at"`
	CardCount          int                    `json:"card_count"`
	OwnerID            string                 `json:"owner_id"`
	IsOwner            bool                   `json:"is_owner"`
	ReserveCharacterID *string                `json:"reserve_character_id,omitempty"`
	UIState            map[string]interface{} `json:"ui_state,omitempty"`
}

// DeckData is the value flowing through every deck operation. It crosses the
// store boundary by value: stores hand out copies, never internal references.
type DeckData struct {
	Metadata DeckMetadata `json:"metadata"`
	Cards    []DeckCard   `json:"cards"`
}

// TotalCards sums the quantities of every slot. Metadata.CardCount is derived
// from this, not authoritative on its own.
func (d *DeckData) TotalCards() int {
	total := 0
	for _, c := range d.Cards {
		total += c.Quantity
	}
	return total
}

// Clone returns a deep copy so that mutating the result is never observable
// in the original.
func (d DeckData) Clone() DeckData {
	out := d

	if d.Cards != nil {
		out.Cards = make([]DeckCard, len(d.Cards))
		copy(out.Cards, d.Cards)
		for i, c := range d.Cards {
			if c.SelectedAlternateImage != nil {
				img := *c.SelectedAlternateImage
				out.Cards[i].SelectedAlternateImage = &img
			}
		}
	}

	if d.Metadata.ReserveCharacterID != nil {
		id := *d.Metadata.ReserveCharacterID
		out.Metadata.ReserveCharacterID = &id
	}
	if d.Metadata.UIState != nil {
		out.Metadata.UIState = cloneUIState(d.Metadata.UIState)
	}

	return out
}

// UIState is opaque and arrives from JSON, so its values are arbitrary trees
// of maps and slices. Copy the whole tree; aliasing any level would let a
// caller reach back into stored state.
func cloneUIState(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneUIValue(v)
	}
	return out
}

func cloneUIValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneUIState(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneUIValue(e)
		}
		return out
	default:
		return v
	}
}

// DeckView is the minimal metadata slice the authorization gate needs.
type DeckView struct {
	ID      string
	OwnerID string
}

// View projects the gate-relevant metadata of a deck.
func (d *DeckData) View() DeckView {
	return DeckView{ID: d.Metadata.ID, OwnerID: d.Metadata.OwnerID}
}

// GuestDeckStats is the observability snapshot of the guest store.
type GuestDeckStats struct {
	TotalGuestDecks int `json:"total_guest_decks"`
	ActiveSessions  int `json:"active_sessions"`
}
