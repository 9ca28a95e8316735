package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/grpprotocol/internal/apperr"
)

type memStore struct {
	users map[int64]*User
}

func (m *memStore) GetByID(_ context.Context, id int64) (*User, error) {
	return m.users[id], nil
}

func (m *memStore) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (m *memStore) Update(_ context.Context, id int64, req *AdminUpdateRequest) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.IsStaff != nil {
		u.IsStaff = *req.IsStaff
	}
	return u, nil
}

func TestService_UpdateProfile(t *testing.T) {
	store := &memStore{users: map[int64]*User{1: {ID: 1, Username: "jdoe"}}}
	svc := NewService(store)
	email := "  jane@example.org "

	u, err := svc.UpdateProfile(context.Background(), 1, &UpdateProfileRequest{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.org", u.Email)
	assert.False(t, u.IsStaff)
	assert.Equal(t, "jdoe", u.DisplayName())
}

func TestService_UpdateProfile_InvalidEmail(t *testing.T) {
	svc := NewService(&memStore{users: map[int64]*User{1: {ID: 1}}})
	bad := "not-an-email"

	_, err := svc.UpdateProfile(context.Background(), 1, &UpdateProfileRequest{Email: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_GetByID_NotFound(t *testing.T) {
	svc := NewService(&memStore{users: map[int64]*User{}})

	_, err := svc.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_AdminUpdate_Staff(t *testing.T) {
	svc := NewService(&memStore{users: map[int64]*User{2: {ID: 2}}})
	staff := true

	u, err := svc.AdminUpdate(context.Background(), 2, &AdminUpdateRequest{IsStaff: &staff})
	require.NoError(t, err)
	assert.True(t, u.IsStaff)
}
