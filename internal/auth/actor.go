// Package auth holds the acting user supplied by the session layer and the
// role permission table checked before every mutation.
package auth

import (
	"context"
	"strings"

	"parts-service/internal/apperr"
)

// Role of the acting user
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleWarehouse Role = "warehouse"
	RoleViewer    Role = "viewer"
)

// ParseRole normalises a role header value. Unknown roles are returned as-is
// and get no permissions.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Action describes a mutation a role may be allowed to perform
type Action string

const (
	ActionOrderCreate     Action = "order:create"
	ActionOrderUpdate     Action = "order:update"
	ActionOrderTransition Action = "order:transition"
	ActionOrderDelete     Action = "order:delete"
	ActionPaymentRecord   Action = "payment:record"
	ActionPaymentReset    Action = "payment:reset"
	ActionStockTransfer   Action = "stock:transfer"
	ActionStockReceive    Action = "stock:receive"
)

var permissions = map[Role]map[Action]bool{
	RoleManager: {
		ActionOrderCreate:     true,
		ActionOrderUpdate:     true,
		ActionOrderTransition: true,
		ActionOrderDelete:     true,
		ActionPaymentRecord:   true,
	},
	RoleWarehouse: {
		ActionOrderTransition: true,
		ActionStockTransfer:   true,
		ActionStockReceive:    true,
	},
}

// Actor is the user performing a call
type Actor struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// Can reports whether the actor's role permits the action
func (a Actor) Can(action Action) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return permissions[a.Role][action]
}

// Authorize returns a PermissionDenied error when the action is not allowed
func (a Actor) Authorize(action Action) error {
	if a.ID == 0 {
		return apperr.PermissionDenied("no acting user")
	}
	if !a.Can(action) {
		return apperr.PermissionDenied("role %q is not allowed to %s", a.Role, action)
	}
	return nil
}

type actorKey struct{}

// WithActor stores the actor in ctx
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns the actor stored by WithActor
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
