package models

// Card is a catalog entry. The catalog is read-only at runtime; rows are
// seeded by migrations or an out-of-band import.
type Card struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Type            CardType `json:"type"`
	Rarity          string   `json:"rarity"`
	SetCode         string   `json:"set_code"`
	ImageURL        string   `json:"image_url"`
	AlternateImages []string `json:"alternate_images,omitempty"`
}

// DeckSectionPrefs maps a card-category name to its expanded/collapsed state.
// The payload is opaque to the authorization gate.
type DeckSectionPrefs map[string]bool

// DeckLayoutPref is the persisted slider/layout position for a deck view.
type DeckLayoutPref struct {
	DeckID         string  `json:"deck_id"`
	SliderPosition float64 `json:"slider_position"`
}
