// Package permission stores per-group grants a staff member hands out to a
// user. Grants are advisory: access decisions are made by group membership
// and the staff flag, and grants are only listed for clients that want to
// display or enforce them.
package permission

import "time"

// Resource is the kind of entity a grant refers to
type Resource string

const (
	ResourceResident Resource = "resident"
	ResourceProtocol Resource = "protocol"
	ResourceGroup    Resource = "group"
)

// Kind is the granted action
type Kind string

const (
	KindRead   Kind = "read"
	KindWrite  Kind = "write"
	KindDelete Kind = "delete"
)

// Permission is one (user, group, resource, kind) grant
type Permission struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	GroupID    int64     `json:"group_id"`
	Resource   Resource  `json:"resource"`
	Permission Kind      `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r Resource) valid() bool {
	return r == ResourceResident || r == ResourceProtocol || r == ResourceGroup
}

func (k Kind) valid() bool {
	return k == KindRead || k == KindWrite || k == KindDelete
}
