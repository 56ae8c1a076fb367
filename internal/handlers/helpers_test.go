package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/CragHollow/deckforge/internal/middleware"
	"github.com/CragHollow/deckforge/internal/models"
	"github.com/CragHollow/deckforge/internal/services"
	"github.com/CragHollow/deckforge/internal/testutil"
)

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	testutil.AssertStatusCode(t, rr, status)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "error", message)
}

func guestIdentity(sessionID string) middleware.Identity {
	return middleware.Identity{
		Authz: models.AuthorizationContext{
			Role:        models.RoleGuest,
			RequesterID: sessionID,
		},
		SessionID: sessionID,
	}
}

func userIdentity(userID string) middleware.Identity {
	return middleware.Identity{
		Authz: models.AuthorizationContext{
			Role:        models.RoleUser,
			RequesterID: userID,
		},
		SessionID: userID,
	}
}

func withIdentity(req *http.Request, identity middleware.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func withPathValue(req *http.Request, key, value string) *http.Request {
	req.SetPathValue(key, value)
	return req
}

type fakeDeckStore struct {
	GetDeckFunc     func(ctx context.Context, ownerID, deckID string) (*models.DeckData, error)
	GetAllDecksFunc func(ctx context.Context, ownerID string) ([]models.DeckData, error)
	CreateDeckFunc  func(ctx context.Context, ownerID string, deck models.DeckData) (string, error)
	UpdateDeckFunc  func(ctx context.Context, ownerID, deckID string, deck models.DeckData) error
	DeleteDeckFunc  func(ctx context.Context, ownerID, deckID string) error
}

func (f *fakeDeckStore) GetDeck(ctx context.Context, ownerID, deckID string) (*models.DeckData, error) {
	if f.GetDeckFunc != nil {
		return f.GetDeckFunc(ctx, ownerID, deckID)
	}
	return nil, nil
}

func (f *fakeDeckStore) GetAllDecks(ctx context.Context, ownerID string) ([]models.DeckData, error) {
	if f.GetAllDecksFunc != nil {
		return f.GetAllDecksFunc(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeDeckStore) CreateDeck(ctx context.Context, ownerID string, deck models.DeckData) (string, error) {
	if f.CreateDeckFunc != nil {
		return f.CreateDeckFunc(ctx, ownerID, deck)
	}
	return "deck-1", nil
}

func (f *fakeDeckStore) UpdateDeck(ctx context.Context, ownerID, deckID string, deck models.DeckData) error {
	if f.UpdateDeckFunc != nil {
		return f.UpdateDeckFunc(ctx, ownerID, deckID, deck)
	}
	return nil
}

func (f *fakeDeckStore) DeleteDeck(ctx context.Context, ownerID, deckID string) error {
	if f.DeleteDeckFunc != nil {
		return f.DeleteDeckFunc(ctx, ownerID, deckID)
	}
	return nil
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error {
	return f(dest...)
}

func errNoRowsRow() services.Row {
	return rowFunc(func(dest ...any) error {
		return pgx.ErrNoRows
	})
}

// shareRow scans like a deck_shares row with no expiry and fresh counters.
func shareRow(deckID, ownerID, token string, created time.Time) services.Row {
	return rowFunc(func(dest ...any) error {
		*(dest[0].(*string)) = deckID
		*(dest[1].(*string)) = ownerID
		*(dest[2].(*string)) = token
		*(dest[3].(*time.Time)) = created
		*(dest[4].(**time.Time)) = nil
		*(dest[5].(**time.Time)) = nil
		*(dest[6].(*int)) = 0
		return nil
	})
}

type fakeTag struct{ affected int64 }

func (f fakeTag) RowsAffected() int64 { return f.affected }

type emptyRows struct{}

func (emptyRows) Close()                {}
func (emptyRows) Err() error            { return nil }
func (emptyRows) Next() bool            { return false }
func (emptyRows) Scan(dest ...any) error { return nil }

type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) services.Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (services.Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (services.CommandTag, error)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (services.CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return fakeTag{affected: 1}, nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (services.Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return emptyRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) services.Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return errNoRowsRow()
}
