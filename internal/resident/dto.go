package resident

const dateLayout = "2006-01-02"

// CreateResidentRequest represents the request to create a resident. Dates use
// the YYYY-MM-DD format.
type CreateResidentRequest struct {
	GroupID   int64   `json:"group_id" validate:"required"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	MovedIn   string  `json:"moved_in" validate:"required"`
	MovedOut  *string `json:"moved_out,omitempty"`
}

// UpdateResidentRequest changes the given fields. MovedOut set to "" marks the
// resident as active again.
type UpdateResidentRequest struct {
	GroupID   *int64  `json:"group_id,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	MovedIn   *string `json:"moved_in,omitempty"`
	MovedOut  *string `json:"moved_out,omitempty"`
}

// ResidentResponse represents the response for a resident
type ResidentResponse struct {
	ID         int64   `json:"id"`
	GroupID    int64   `json:"group_id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	FullName   string  `json:"full_name"`
	MovedIn    string  `json:"moved_in"`
	MovedOut   *string `json:"moved_out,omitempty"`
	IsActive   bool    `json:"is_active"`
	PictureURL *string `json:"picture_url,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// ToResponse converts a Resident model to a ResidentResponse DTO
func (r *Resident) ToResponse() *ResidentResponse {
	resp := &ResidentResponse{
		ID:        r.ID,
		GroupID:   r.GroupID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		FullName:  r.FullName(),
		MovedIn:   r.MovedIn.Format(dateLayout),
		IsActive:  r.IsActive(),
		CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if r.MovedOut != nil {
		out := r.MovedOut.Format(dateLayout)
		resp.MovedOut = &out
	}
	return resp
}
