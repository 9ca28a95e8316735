package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/fkhayef/grpprotocol/internal/apperr"
)

// Common errors
var (
	ErrUserNotFound = apperr.NotFound("Benutzer nicht gefunden.")
	ErrInvalidEmail = apperr.Validation("Ungültige E-Mail-Adresse.")
)

// Store is the persistence the service needs
type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, id int64, req *AdminUpdateRequest) (*User, error)
}

// Service handles user business logic
type Service struct {
	repo Store
}

// NewService creates a new user service
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List retrieves a paginated list of users
func (s *Service) List(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// UpdateProfile lets a user change their own name and email
func (s *Service) UpdateProfile(ctx context.Context, id int64, req *UpdateProfileRequest) (*User, error) {
	return s.update(ctx, id, &AdminUpdateRequest{UpdateProfileRequest: *req})
}

// AdminUpdate additionally allows toggling the staff flag
func (s *Service) AdminUpdate(ctx context.Context, id int64, req *AdminUpdateRequest) (*User, error) {
	return s.update(ctx, id, req)
}

func (s *Service) update(ctx context.Context, id int64, req *AdminUpdateRequest) (*User, error) {
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, ErrInvalidEmail
			}
		}
		req.Email = &email
	}

	user, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
