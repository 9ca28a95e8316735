package permission

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository handles permission data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new permission repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the grants of a user
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Permission, error) {
	query := `
		SELECT id, user_id, group_id, resource, permission, created_at
		FROM user_permissions
		WHERE user_id = $1
		ORDER BY group_id, resource, permission
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	permissions := []*Permission{}
	for rows.Next() {
		p := &Permission{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.GroupID, &p.Resource, &p.Permission, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

// Create inserts a grant. An existing identical grant is returned unchanged
// and the bool is false.
func (r *Repository) Create(ctx context.Context, userID int64, req *GrantRequest) (*Permission, bool, error) {
	query := `
		WITH ins AS (
			INSERT INTO user_permissions (user_id, group_id, resource, permission)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, group_id, resource, permission) DO NOTHING
			RETURNING id, user_id, group_id, resource, permission, created_at
		)
		SELECT id, user_id, group_id, resource, permission, created_at, TRUE FROM ins
		UNION ALL
		SELECT id, user_id, group_id, resource, permission, created_at, FALSE
		FROM user_permissions
		WHERE user_id = $1 AND group_id = $2 AND resource = $3 AND permission = $4
		LIMIT 1
	`

	p := &Permission{}
	var created bool
	err := r.db.QueryRowContext(ctx, query, userID, req.GroupID, string(req.Resource), string(req.Permission)).Scan(
		&p.ID,
		&p.UserID,
		&p.GroupID,
		&p.Resource,
		&p.Permission,
		&p.CreatedAt,
		&created,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create permission: %w", err)
	}
	return p, created, nil
}

// Delete removes a grant of the user
func (r *Repository) Delete(ctx context.Context, userID, permissionID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_permissions WHERE id = $1 AND user_id = $2`, permissionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete permission: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
