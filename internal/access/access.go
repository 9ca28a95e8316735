// Package access decides which groups, residents and protocols a user may see
// or touch. Staff see everything; everybody else is limited to the groups they
// are a member of.
package access

import (
	"context"
	"fmt"

	"github.com/fkhayef/grpprotocol/internal/apperr"
)

// ErrForbidden is returned when a resolvable resource lies outside the caller's groups
var ErrForbidden = apperr.Forbidden("Sie haben keinen Zugriff auf diese Gruppe.")

// Principal is the authenticated caller
type Principal struct {
	UserID  int64
	IsStaff bool
}

// Scope restricts list queries. All means no restriction.
type Scope struct {
	All    bool
	UserID int64
}

// Memberships answers membership questions; implemented by the group repository
type Memberships interface {
	IsMember(ctx context.Context, groupID, userID int64) (bool, error)
}

// Resolver evaluates the access predicate. It holds no per-user state, so every
// call re-reads membership from the store.
type Resolver struct {
	members Memberships
}

// NewResolver creates a new access resolver
func NewResolver(members Memberships) *Resolver {
	return &Resolver{members: members}
}

// Scope returns the list filter for the principal
func (r *Resolver) Scope(p Principal) Scope {
	if p.IsStaff {
		return Scope{All: true}
	}
	return Scope{UserID: p.UserID}
}

// CanAccessGroup reports whether p is staff or a member of groupID
func (r *Resolver) CanAccessGroup(ctx context.Context, p Principal, groupID int64) (bool, error) {
	if p.IsStaff {
		return true, nil
	}
	ok, err := r.members.IsMember(ctx, groupID, p.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// RequireGroup returns ErrForbidden unless p can access groupID
func (r *Resolver) RequireGroup(ctx context.Context, p Principal, groupID int64) error {
	ok, err := r.CanAccessGroup(ctx, p, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// GroupFilter renders the scope as a SQL predicate on column for placeholder
// position n. The returned args must be appended to the query args. An All
// scope yields "TRUE" and no args.
func GroupFilter(s Scope, column string, n int) (string, []interface{}) {
	if s.All {
		return "TRUE", nil
	}
	return fmt.Sprintf("%s IN (SELECT group_id FROM group_members WHERE user_id = $%d)", column, n), []interface{}{s.UserID}
}
