package group

import (
	"strings"
	"time"
)

// Group is a residential unit owning residents and protocols
type Group struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	PostalCode     string    `json:"postalcode"`
	City           string    `json:"city"`
	Color          string    `json:"color"`
	PDFTemplateKey *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// FullAddress formats the address as printed on exports, e.g.
// "Hauptstraße 1, 12345 Musterstadt"
func (g *Group) FullAddress() string {
	city := strings.TrimSpace(g.PostalCode + " " + g.City)
	switch {
	case g.Address == "":
		return city
	case city == "":
		return g.Address
	default:
		return g.Address + ", " + city
	}
}

// HasTemplate reports whether a letterhead PDF is stored for the group
func (g *Group) HasTemplate() bool {
	return g.PDFTemplateKey != nil && *g.PDFTemplateKey != ""
}

// Member represents a user's membership in a group
type Member struct {
	GroupID  int64     `json:"group_id"`
	UserID   int64     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`

	// Populated from JOIN
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}
