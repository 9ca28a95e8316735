package resident

import (
	"strings"
	"time"
)

// Resident lives in exactly one group
type Resident struct {
	ID         int64      `json:"id"`
	GroupID    int64      `json:"group_id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	PictureKey *string    `json:"-"`
	MovedIn    time.Time  `json:"moved_in"`
	MovedOut   *time.Time `json:"moved_out,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsActive reports whether the resident still lives in the group
func (r *Resident) IsActive() bool {
	return r.MovedOut == nil
}

// FullName joins first and last name
func (r *Resident) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Filter narrows resident lists
type Filter struct {
	GroupID    *int64
	ActiveOnly bool
}
