package user

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/grpprotocol/internal/access"
)

// Repository handles user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, username, first_name, last_name, email, is_staff, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.IsStaff,
		&user.CreatedAt,
	)
	return user, err
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// List retrieves a page of users ordered by username
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY username LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, total, rows.Err()
}

// Update applies the non-nil fields of req
func (r *Repository) Update(ctx context.Context, id int64, req *AdminUpdateRequest) (*User, error) {
	query := `
		UPDATE users
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name),
		    email = COALESCE($4, email),
		    is_staff = COALESCE($5, is_staff)
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, req.FirstName, req.LastName, req.Email, req.IsStaff))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// PrincipalByToken resolves an API token to its owner. Unknown tokens yield nil.
func (r *Repository) PrincipalByToken(ctx context.Context, key string) (*access.Principal, error) {
	query := `
		SELECT u.id, u.is_staff
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.key = $1
	`

	p := &access.Principal{}
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&p.UserID, &p.IsStaff); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return p, nil
}

// PrincipalByID loads the principal for a known user id. Unknown ids yield nil.
func (r *Repository) PrincipalByID(ctx context.Context, id int64) (*access.Principal, error) {
	p := &access.Principal{}
	if err := r.db.QueryRowContext(ctx, `SELECT id, is_staff FROM users WHERE id = $1`, id).Scan(&p.UserID, &p.IsStaff); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return p, nil
}
