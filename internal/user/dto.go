package user

// UpdateProfileRequest is the body of PUT /users/me. Omitted fields stay unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// AdminUpdateRequest is the body of PUT /admin/users/{id}
type AdminUpdateRequest struct {
	UpdateProfileRequest
	IsStaff *bool `json:"is_staff,omitempty"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	CreatedAt   string `json:"created_at"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		CreatedAt:   u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
