package models

// Role classifies the caller of a request.
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// AuthorizationContext is built once per request by the identity middleware
// and consumed by the authorization gate. It is never stored.
//
// IsReadOnlyRequest is derived from a server-verified capability (a resolved
// share token), never from client-echoed state.
type AuthorizationContext struct {
	Role              Role
	IsReadOnlyRequest bool
	RequesterID       string
}
