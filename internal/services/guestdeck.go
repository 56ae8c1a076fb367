package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/CragHollow/deckforge/internal/logging"
	"github.com/CragHollow/deckforge/internal/models"
)

const (
	// GuestDeckTTL is the sliding expiration window for an unaccessed guest
	// deck. Every successful read or write pushes the deadline forward.
	GuestDeckTTL = 2 * time.Minute

	// GuestDeckSweepInterval is how often the background sweeper scans for
	// expired entries. Eviction lag is therefore bounded by TTL + interval.
	GuestDeckSweepInterval = 30 * time.Second

	guestDeckRandomSuffixLen = 9
)

type guestDeckEntry struct {
	id             string
	sessionID      string
	deckData       models.DeckData
	createdAt      time.Time
	lastAccessedAt time.Time
	expiresAt      time.Time
}

// GuestDeckService holds guest decks in memory with sliding expiration.
// Nothing here touches durable storage; a deck lives exactly as long as
// somebody keeps reading or writing it.
//
// Ownership of a guest deck is the owning session id; the session index is
// kept in lockstep with the primary map under one mutex, so the two are
// never observably out of sync.
type GuestDeckService struct {
	mu       sync.Mutex
	decks    map[string]*guestDeckEntry
	sessions map[string]map[string]struct{}

	ttl       time.Duration
	sweepEach time.Duration
	now       func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// GuestDeckOption tweaks store construction. Used by tests to inject a
// virtual clock and by the server to apply configured intervals.
type GuestDeckOption func(*GuestDeckService)

func WithGuestDeckTTL(ttl time.Duration) GuestDeckOption {
	return func(s *GuestDeckService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithGuestDeckSweepInterval(interval time.Duration) GuestDeckOption {
	return func(s *GuestDeckService) {
		if interval > 0 {
			s.sweepEach = interval
		}
	}
}

func WithGuestDeckClock(now func() time.Time) GuestDeckOption {
	return func(s *GuestDeckService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithoutGuestDeckSweeper disables the background sweeper; ticks are then
// driven manually via Sweep. Tests use this to control time.
func WithoutGuestDeckSweeper() GuestDeckOption {
	return func(s *GuestDeckService) {
		s.sweepEach = 0
	}
}

// NewGuestDeckService builds a store and starts its sweeper. Callers own the
// returned handle and must Destroy it on shutdown.
func NewGuestDeckService(opts ...GuestDeckOption) *GuestDeckService {
	s := &GuestDeckService{
		decks:     make(map[string]*guestDeckEntry),
		sessions:  make(map[string]map[string]struct{}),
		ttl:       GuestDeckTTL,
		sweepEach: GuestDeckSweepInterval,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sweepEach > 0 {
		go s.sweepLoop()
	}

	return s
}

// CreateDeck stores a snapshot under a freshly generated id and registers it
// with the owning session. The incoming metadata id and owner are overwritten;
// identity is assigned here, never by the caller.
func (s *GuestDeckService) CreateDeck(sessionID string, deckData models.DeckData) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := generateGuestDeckID(sessionID, now)

	stored := deckData.Clone()
	stored.Metadata.ID = id
	stored.Metadata.OwnerID = sessionID
	stored.Metadata.CreatedAt = now
	stored.Metadata.LastModifiedAt = now
	stored.Metadata.CardCount = stored.TotalCards()

	s.decks[id] = &guestDeckEntry{
		id:             id,
		sessionID:      sessionID,
		deckData:       stored,
		createdAt:      now,
		lastAccessedAt: now,
		expiresAt:      now.Add(s.ttl),
	}
	s.indexDeck(sessionID, id)

	logging.Info("Guest deck created", map[string]interface{}{
		"deck_id": id,
		"session": sessionID,
	})

	return id
}

// UpdateDeck replaces the stored snapshot. Returns false when the deck does
// not exist or belongs to another session; callers must not distinguish the
// two cases.
func (s *GuestDeckService) UpdateDeck(sessionID, deckID string, deckData models.DeckData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.decks[deckID]
	if !ok || entry.sessionID != sessionID {
		return false
	}

	now := s.now()
	stored := deckData.Clone()
	// Re-stamp identity defensively; the entry id never changes.
	stored.Metadata.ID = entry.id
	stored.Metadata.OwnerID = entry.sessionID
	stored.Metadata.CreatedAt = entry.createdAt
	stored.Metadata.LastModifiedAt = now
	stored.Metadata.CardCount = stored.TotalCards()

	entry.deckData = stored
	s.touchLocked(entry, now)

	logging.Info("Guest deck updated", map[string]interface{}{
		"deck_id": deckID,
		"session": sessionID,
		"cards":   stored.Metadata.CardCount,
	})

	return true
}

// GetDeck returns a copy of the stored deck, or nil when it does not exist or
// belongs to another session. A hit extends the sliding expiration: an
// actively viewed deck must not expire mid-session.
func (s *GuestDeckService) GetDeck(sessionID, deckID string) *models.DeckData {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.decks[deckID]
	if !ok || entry.sessionID != sessionID {
		return nil
	}

	s.touchLocked(entry, s.now())

	out := entry.deckData.Clone()
	return &out
}

// PeekDeck returns a copy of the stored deck without refreshing the sliding
// expiration. Handlers use it for the ownership check that runs before the
// authorization gate: a denied operation must leave the store unchanged, so
// the pre-gate lookup must not extend the deck's lifetime.
func (s *GuestDeckService) PeekDeck(sessionID, deckID string) *models.DeckData {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.decks[deckID]
	if !ok || entry.sessionID != sessionID {
		return nil
	}

	out := entry.deckData.Clone()
	return &out
}

// GetAllDecksForSession returns copies of every deck the session owns,
// refreshing each one's expiration. An unknown session yields an empty slice.
func (s *GuestDeckService) GetAllDecksForSession(sessionID string) []models.DeckData {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.sessions[sessionID]
	out := make([]models.DeckData, 0, len(ids))
	now := s.now()
	for id := range ids {
		entry, ok := s.decks[id]
		if !ok {
			continue
		}
		s.touchLocked(entry, now)
		out = append(out, entry.deckData.Clone())
	}
	return out
}

// DeleteDeck removes a deck the session owns. Returns false on absence or
// ownership mismatch, indistinguishably.
func (s *GuestDeckService) DeleteDeck(sessionID, deckID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.decks[deckID]
	if !ok || entry.sessionID != sessionID {
		return false
	}

	s.removeLocked(entry)

	logging.Info("Guest deck deleted", map[string]interface{}{
		"deck_id": deckID,
		"session": sessionID,
	})

	return true
}

// CleanupSessionDecks removes every deck the session owns and reports how
// many were dropped. Used when a session terminates.
func (s *GuestDeckService) CleanupSessionDecks(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.sessions[sessionID]
	removed := 0
	for id := range ids {
		if entry, ok := s.decks[id]; ok {
			s.removeLocked(entry)
			removed++
		}
	}

	if removed > 0 {
		logging.Info("Guest session cleaned up", map[string]interface{}{
			"session": sessionID,
			"removed": removed,
		})
	}

	return removed
}

// GetStats reports store cardinalities for observability.
func (s *GuestDeckService) GetStats() models.GuestDeckStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.GuestDeckStats{
		TotalGuestDecks: len(s.decks),
		ActiveSessions:  len(s.sessions),
	}
}

// Sweep evicts every entry whose deadline is strictly in the past and returns
// the count removed. The background loop calls this each tick; tests call it
// directly.
func (s *GuestDeckService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for _, entry := range s.decks {
		if entry.expiresAt.Before(now) {
			s.removeLocked(entry)
			removed++
		}
	}

	if removed > 0 {
		logging.Info("Expired guest decks swept", map[string]interface{}{
			"removed": removed,
		})
	}

	return removed
}

// Destroy stops the sweeper. Safe to call multiple times and before any tick
// ran; the store remains usable for synchronous calls afterwards.
func (s *GuestDeckService) Destroy() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *GuestDeckService) sweepLoop() {
	ticker := time.NewTicker(s.sweepEach)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// touchLocked refreshes the sliding window. Callers hold s.mu.
func (s *GuestDeckService) touchLocked(entry *guestDeckEntry, now time.Time) {
	entry.lastAccessedAt = now
	entry.expiresAt = now.Add(s.ttl)
}

// indexDeck registers a deck id under its owning session. Callers hold s.mu.
func (s *GuestDeckService) indexDeck(sessionID, deckID string) {
	ids, ok := s.sessions[sessionID]
	if !ok {
		ids = make(map[string]struct{})
		s.sessions[sessionID] = ids
	}
	ids[deckID] = struct{}{}
}

// removeLocked drops an entry from the primary map and the session index,
// dropping the session's index entry entirely once it empties. Callers hold
// s.mu.
func (s *GuestDeckService) removeLocked(entry *guestDeckEntry) {
	delete(s.decks, entry.id)
	if ids, ok := s.sessions[entry.sessionID]; ok {
		delete(ids, entry.id)
		if len(ids) == 0 {
			delete(s.sessions, entry.sessionID)
		}
	}
}

// generateGuestDeckID produces guest_{sessionId}_{epochMillis}_{base36x9}.
// The format is part of the public contract: callers route to the guest store
// by prefix alone.
func generateGuestDeckID(sessionID string, now time.Time) string {
	return fmt.Sprintf("%s%s_%d_%s",
		models.GuestDeckIDPrefix,
		sessionID,
		now.UnixMilli(),
		randomBase36(guestDeckRandomSuffixLen),
	)
}

var base36Max = new(big.Int).Exp(big.NewInt(36), big.NewInt(guestDeckRandomSuffixLen), nil)

func randomBase36(length int) string {
	n, err := rand.Int(rand.Reader, base36Max)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a time-derived value rather than aborting.
		n = big.NewInt(time.Now().UnixNano())
	}
	encoded := n.Text(36)
	if len(encoded) < length {
		encoded = strings.Repeat("0", length-len(encoded)) + encoded
	}
	return encoded
}
