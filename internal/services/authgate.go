package services

import (
	"github.com/CragHollow/deckforge/internal/logging"
	"github.com/CragHollow/deckforge/internal/models"
)

// Deny reasons are fixed tokens; downstream alerting matches on them
// verbatim, so they must never be reworded.
const (
	DenyReadOnlyMode = "read-only-mode"
	DenyGuestRole    = "guest-role"
	DenyNotOwner     = "not-owner"
)

// Operation classifies what a caller is about to do to a deck. Persists marks
// operations that write durable state; guest-store cache writes do not.
type Operation struct {
	Name     string
	Persists bool
}

// Decision is an authorization verdict. The zero value is a denial with no
// reason; use Allow/Deny to construct values.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// DecideMutation is the single gate in front of every mutating or
// preference-persisting deck operation. It is pure: no I/O, same inputs
// always give the same verdict. On a deny, callers abort the store call,
// answer the client, and report the denial via LogDenial.
//
// Rules apply in fixed precedence; a higher rule's denial must never be
// shadowed by a lower rule's allow:
//
//  1. read-only requests are denied outright, regardless of role or
//     ownership;
//  2. guests are denied any operation that persists a change (cache writes
//     against the guest store pass, since nothing durable is touched);
//  3. a requester who does not own the deck is denied;
//  4. otherwise allowed.
func DecideMutation(actx models.AuthorizationContext, op Operation, deck models.DeckView) Decision {
	if actx.IsReadOnlyRequest {
		return Deny(DenyReadOnlyMode)
	}
	if actx.Role == models.RoleGuest && op.Persists {
		return Deny(DenyGuestRole)
	}
	if deck.OwnerID != actx.RequesterID {
		return Deny(DenyNotOwner)
	}
	return Allow()
}

// LogDenial records a gate denial as a security event.
func LogDenial(actx models.AuthorizationContext, op Operation, deck models.DeckView, decision Decision) {
	logging.Warn("Deck mutation denied", map[string]interface{}{
		"reason":    decision.Reason,
		"operation": op.Name,
		"deck_id":   deck.ID,
		"requester": actx.RequesterID,
		"role":      string(actx.Role),
	})
}
