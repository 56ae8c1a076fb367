package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/CragHollow/deckforge/internal/models"
)

func TestCatalogService_GetCard(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			if args[0] != "c-001" {
				t.Fatalf("expected card id arg, got %v", args[0])
			}
			return rowFromValues("c-001", "Captain Kirk", models.CardType("character"), "rare", "PREM", "/img/c-001.png", []string{"/img/c-001-alt.png"})
		},
	}
	svc := NewCatalogService(db)

	card, err := svc.GetCard(context.Background(), "c-001")
	if err != nil {
		t.Fatalf("expected get to succeed, got %v", err)
	}
	if card.Title != "Captain Kirk" || card.Type != models.CardTypeCharacter {
		t.Fatalf("unexpected card: %+v", card)
	}
	if len(card.AlternateImages) != 1 {
		t.Fatalf("expected one alternate image, got %d", len(card.AlternateImages))
	}
}

func TestCatalogService_GetCardNotFound(t *testing.T) {
	db := &fakeDB{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) Row {
			return fakeRow{scanFunc: func(dest ...any) error {
				return pgx.ErrNoRows
			}}
		},
	}
	svc := NewCatalogService(db)

	if _, err := svc.GetCard(context.Background(), "nope"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestCatalogService_ListCardsFilters(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			gotSQL = sql
			gotArgs = args
			return &fakeRows{rows: [][]any{
				{"m-001", "Survey Mission", models.CardType("mission"), "common", "PREM", "", []string{}},
			}}, nil
		},
	}
	svc := NewCatalogService(db)

	cardType := models.CardTypeMission
	setCode := "PREM"
	cards, err := svc.ListCards(context.Background(), &cardType, &setCode)
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(cards) != 1 || cards[0].ID != "m-001" {
		t.Fatalf("unexpected cards: %+v", cards)
	}
	if !strings.Contains(gotSQL, "WHERE type = $1") || !strings.Contains(gotSQL, "set_code = $2") {
		t.Fatalf("expected both filters in query, got: %s", gotSQL)
	}
	if len(gotArgs) != 2 {
		t.Fatalf("expected 2 args, got %v", gotArgs)
	}
}

func TestCatalogService_ListCardsRejectsBadType(t *testing.T) {
	svc := NewCatalogService(&fakeDB{})

	badType := models.CardType("starship")
	if _, err := svc.ListCards(context.Background(), &badType, nil); !errors.Is(err, ErrInvalidCardType) {
		t.Fatalf("expected ErrInvalidCardType, got %v", err)
	}
}

func TestCatalogService_ListCardsEmpty(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			return &fakeRows{}, nil
		},
	}
	svc := NewCatalogService(db)

	cards, err := svc.ListCards(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if cards == nil || len(cards) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", cards)
	}
}

func TestCatalogService_ListSets(t *testing.T) {
	db := &fakeDB{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (Rows, error) {
			if !strings.Contains(sql, "DISTINCT set_code") {
				t.Fatalf("expected distinct set query, got: %s", sql)
			}
			return &fakeRows{rows: [][]any{{"ALT"}, {"PREM"}}}, nil
		},
	}
	svc := NewCatalogService(db)

	sets, err := svc.ListSets(context.Background())
	if err != nil {
		t.Fatalf("expected list to succeed, got %v", err)
	}
	if len(sets) != 2 || sets[0] != "ALT" {
		t.Fatalf("unexpected sets: %v", sets)
	}
}
