package protocol

import "time"

const dateLayout = "2006-01-02"

// CreateProtocolRequest represents the request body for creating a protocol
type CreateProtocolRequest struct {
	GroupID      int64  `json:"group_id"`
	ProtocolDate string `json:"protocol_date" example:"2024-03-01"`
}

// UpdateProtocolRequest changes the editable fields. Omitted fields stay unchanged.
type UpdateProtocolRequest struct {
	ProtocolDate *string `json:"protocol_date,omitempty"`
	Status       *Status `json:"status,omitempty" enums:"draft,ready"`
}

// UpsertItemRequest updates the item with ID when it belongs to the protocol
// and creates a new one otherwise.
type UpsertItemRequest struct {
	ID       *int64  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Value    *string `json:"value"`
}

// CreateTodoRequest represents the request body for a new to-do
type CreateTodoRequest struct {
	Was      string `json:"was"`
	Wer      string `json:"wer"`
	Wann     string `json:"wann"`
	Position int    `json:"position"`
}

// UpdateTodoRequest changes the given to-do fields
type UpdateTodoRequest struct {
	Was      *string `json:"was,omitempty"`
	Wer      *string `json:"wer,omitempty"`
	Wann     *string `json:"wann,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// UpdatePresenceRequest sets the attendance of one member
type UpdatePresenceRequest struct {
	UserID     int64 `json:"user_id"`
	WasPresent bool  `json:"was_present"`
}

// ProtocolResponse represents the protocol in API responses
type ProtocolResponse struct {
	ID              int64           `json:"id"`
	GroupID         int64           `json:"group_id"`
	ProtocolDate    string          `json:"protocol_date"`
	Created         time.Time       `json:"created"`
	LastModified    time.Time       `json:"last_modified"`
	Status          Status          `json:"status"`
	Exported        bool            `json:"exported"`
	ExportedFileURL *string         `json:"exported_file_url"`
	Items           []*ItemResponse `json:"items,omitempty"`
}

// ItemResponse represents an item in API responses
type ItemResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Position int     `json:"position"`
	Value    *string `json:"value"`
}

// UpsertItemResponse reports whether the item was created
type UpsertItemResponse struct {
	Item    *ItemResponse `json:"item"`
	Created bool          `json:"created"`
}

// PresenceResponse represents a presence row in API responses
type PresenceResponse struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	WasPresent  bool   `json:"was_present"`
}

// UpsertPresenceResponse reports whether the presence row was created
type UpsertPresenceResponse struct {
	Presence *PresenceResponse `json:"presence"`
	Created  bool              `json:"created"`
}

// ToResponse converts a Protocol to ProtocolResponse
func (p *Protocol) ToResponse() *ProtocolResponse {
	resp := &ProtocolResponse{
		ID:           p.ID,
		GroupID:      p.GroupID,
		ProtocolDate: p.ProtocolDate.Format(dateLayout),
		Created:      p.Created,
		LastModified: p.LastModified,
		Status:       p.Status,
		Exported:     p.Exported,
	}
	if p.Items != nil {
		resp.Items = make([]*ItemResponse, len(p.Items))
		for i, item := range p.Items {
			resp.Items[i] = item.ToResponse()
		}
	}
	return resp
}

// ToResponse converts an Item to ItemResponse
func (i *Item) ToResponse() *ItemResponse {
	return &ItemResponse{ID: i.ID, Name: i.Name, Position: i.Position, Value: i.Value}
}

// ToResponse converts a Presence to PresenceResponse
func (p *Presence) ToResponse() *PresenceResponse {
	return &PresenceResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Username:    p.Username,
		DisplayName: p.DisplayName(),
		WasPresent:  p.WasPresent,
	}
}
