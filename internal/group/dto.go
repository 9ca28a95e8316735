package group

// CreateGroupRequest represents the request to create a new group
type CreateGroupRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	Address    string `json:"address"`
	PostalCode string `json:"postalcode"`
	City       string `json:"city"`
	Color      string `json:"color"`
}

// UpdateGroupRequest represents a partial update. Omitted or null fields keep
// their stored value; an explicit empty string clears the field.
type UpdateGroupRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Address    *string `json:"address,omitempty"`
	PostalCode *string `json:"postalcode,omitempty"`
	City       *string `json:"city,omitempty"`
	Color      *string `json:"color,omitempty"`
}

// AddMemberRequest represents the request to add a user to a group
type AddMemberRequest struct {
	GroupID int64 `json:"group_id" validate:"required"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Address        string            `json:"address"`
	PostalCode     string            `json:"postalcode"`
	City           string            `json:"city"`
	FullAddress    string            `json:"full_address"`
	Color          string            `json:"color"`
	HasPDFTemplate bool              `json:"has_pdf_template"`
	PDFTemplateURL *string           `json:"pdf_template_url,omitempty"`
	CreatedAt      string            `json:"created_at"`
	Members        []*MemberResponse `json:"members,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name,omitempty"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	JoinedAt  string `json:"joined_at"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:             g.ID,
		Name:           g.Name,
		Address:        g.Address,
		PostalCode:     g.PostalCode,
		City:           g.City,
		FullAddress:    g.FullAddress(),
		Color:          g.Color,
		HasPDFTemplate: g.HasTemplate(),
		CreatedAt:      g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		GroupID:   m.GroupID,
		GroupName: m.GroupName,
		UserID:    m.UserID,
		Username:  m.Username,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		JoinedAt:  m.JoinedAt.Format("2006-01-02T15:04:05Z"),
	}
}
