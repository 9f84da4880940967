// Package authz decides whether an actor may mutate a comment and whether the
// submitted payload is well formed. Each role maps to exactly one Strategy.
package authz

import (
	"context"
	"fmt"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/domain"
)

// ErrUnknownRole is a configuration error: a role without a strategy.
var ErrUnknownRole = domain.ErrUnknownRole

// Reason tags a decision for logs, metrics and error mapping.
type Reason string

const (
	ReasonOwner           Reason = "owner"
	ReasonAuthenticated   Reason = "authenticated"
	ReasonElevatedRole    Reason = "elevated_role"
	ReasonValid           Reason = "valid"
	ReasonNotOwner        Reason = "not_owner"
	ReasonGuest           Reason = "guest"
	ReasonMissingPayload  Reason = "missing_payload"
	ReasonEmptyContent    Reason = "empty_content"
	ReasonContentTooLong  Reason = "content_too_long"
	ReasonMissingPost     Reason = "missing_post"
	ReasonUnauthenticated Reason = "unauthenticated"
)

// Decision is the result of one check. A denial is a normal outcome, not an error.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func Allow(r Reason) Decision { return Decision{Allowed: true, Reason: r} }
func Deny(r Reason) Decision  { return Decision{Allowed: false, Reason: r} }

// Strategy is the per-role decision contract. Authorization (Can*) and payload
// validation (Validate*) are independent; callers must require both.
type Strategy interface {
	CanCreateComment(ctx context.Context, actor domain.Actor) Decision
	CanUpdateComment(ctx context.Context, actor domain.Actor, target domain.Comment) Decision
	CanDeleteComment(ctx context.Context, actor domain.Actor, target domain.Comment) Decision
	ValidateCreateData(payload *domain.CommentPayload) Decision
	ValidateUpdateData(payload *domain.CommentPayload) Decision
}

// Table maps every role to its strategy. Its length follows the role
// enumeration and NewRegistry rejects any empty slot.
type Table [domain.RoleCount]Strategy

// DefaultTable is the production role mapping.
func DefaultTable() Table {
	return Table{
		domain.RoleGuest:     Guest{},
		domain.RoleUser:      Owner{},
		domain.RoleModerator: Moderator{},
		domain.RoleAdmin:     Admin{},
	}
}

// Registry resolves roles to strategies. Immutable after construction.
type Registry struct {
	table Table
}

// NewRegistry validates that every role has a strategy.
func NewRegistry(table Table) (*Registry, error) {
	for i, s := range table {
		if s == nil {
			return nil, fmt.Errorf("%w: no strategy registered for %s", ErrUnknownRole, domain.Role(i))
		}
	}
	return &Registry{table: table}, nil
}

// MustNewRegistry panics on an incomplete table. Only use with tables known
// at compile time.
func MustNewRegistry(table Table) *Registry {
	r, err := NewRegistry(table)
	if err != nil {
		panic(err)
	}
	return r
}

// Default is the registry built from DefaultTable.
func Default() *Registry {
	return MustNewRegistry(DefaultTable())
}

// Resolve returns the strategy for role. Only a Role value outside the
// enumeration fails.
func (r *Registry) Resolve(role domain.Role) (Strategy, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return r.table[role], nil
}
