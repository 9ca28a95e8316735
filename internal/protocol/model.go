package protocol

import (
	"strings"
	"time"
)

// Protocol is a dated set of meeting minutes of one group
type Protocol struct {
	ID              int64     `json:"id"`
	GroupID         int64     `json:"group_id"`
	ProtocolDate    time.Time `json:"protocol_date"`
	Created         time.Time `json:"created"`
	LastModified    time.Time `json:"last_modified"`
	Status          Status    `json:"status"`
	Exported        bool      `json:"exported"`
	ExportedFileKey *string   `json:"-"`

	// Populated on detail reads
	Items []*Item `json:"items,omitempty"`
}

// Item is one agenda point. Items are read in position order, ties broken by id.
type Item struct {
	ID         int64   `json:"id"`
	ProtocolID int64   `json:"protocol_id"`
	Name       string  `json:"name"`
	Position   int     `json:"position"`
	Value      *string `json:"value"`
}

// Todo is a follow-up task recorded in a protocol
type Todo struct {
	ID         int64     `json:"id"`
	ProtocolID int64     `json:"protocol_id"`
	Was        string    `json:"was"`
	Wer        string    `json:"wer"`
	Wann       string    `json:"wann"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Presence records whether a group member attended
type Presence struct {
	ID         int64 `json:"id"`
	ProtocolID int64 `json:"protocol_id"`
	UserID     int64 `json:"user_id"`
	WasPresent bool  `json:"was_present"`

	// Joined fields
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName is the member's full name, or the username when no name is set
func (p *Presence) DisplayName() string {
	if name := strings.TrimSpace(p.FirstName + " " + p.LastName); name != "" {
		return name
	}
	return p.Username
}

// Suggestion is an active resident offered for @-mentions
type Suggestion struct {
	ID      int64  `json:"id"`
	Token   string `json:"token"`
	Display string `json:"display"`
}

// Filter narrows protocol lists
type Filter struct {
	GroupID *int64
	Status  *Status
}
