package group

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fkhayef/grpprotocol/internal/access"
)

// Repository handles group data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const groupColumns = `id, name, address, postalcode, city, color, pdf_template_key, created_at`

func scanGroup(row interface{ Scan(...interface{}) error }) (*Group, error) {
	group := &Group{}
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Address,
		&group.PostalCode,
		&group.City,
		&group.Color,
		&group.PDFTemplateKey,
		&group.CreatedAt,
	)
	return group, err
}

// Create inserts a new group into the database
func (r *Repository) Create(ctx context.Context, req *CreateGroupRequest) (*Group, error) {
	query := `
		INSERT INTO groups (name, address, postalcode, city, color)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + groupColumns

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, req.Name, req.Address, req.PostalCode, req.City, req.Color))
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// Exists reports whether a group with id exists
func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check group: %w", err)
	}
	return exists, nil
}

// List retrieves the groups visible under scope
func (r *Repository) List(ctx context.Context, scope access.Scope, limit, offset int) ([]*Group, int, error) {
	filter, args := access.GroupFilter(scope, "id", 1)

	var total int
	countQuery := `SELECT COUNT(*) FROM groups WHERE ` + filter
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM groups
		WHERE %s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d
	`, groupColumns, filter, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, total, rows.Err()
}

// Update modifies an existing group. Nil fields keep their stored value.
func (r *Repository) Update(ctx context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	query := `
		UPDATE groups
		SET name = COALESCE($2, name),
		    address = COALESCE($3, address),
		    postalcode = COALESCE($4, postalcode),
		    city = COALESCE($5, city),
		    color = COALESCE($6, color)
		WHERE id = $1
		RETURNING ` + groupColumns

	group, err := scanGroup(r.db.QueryRowContext(ctx, query, id, req.Name, req.Address, req.PostalCode, req.City, req.Color))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}

	return group, nil
}

// SetTemplateKey stores (or clears, when key is nil) the letterhead reference
func (r *Repository) SetTemplateKey(ctx context.Context, id int64, key *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE groups SET pdf_template_key = $2 WHERE id = $1`, id, key); err != nil {
		return fmt.Errorf("failed to set pdf template: %w", err)
	}
	return nil
}

// Delete removes a group; residents, protocols and memberships cascade.
// It reports whether a row was deleted.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete group: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// IsMember reports whether userID belongs to groupID
func (r *Repository) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// AddMember adds a user to a group. Adding an existing member is a no-op that
// returns the existing row.
func (r *Repository) AddMember(ctx context.Context, groupID, userID int64) (*Member, error) {
	query := `
		WITH ins AS (
			INSERT INTO group_members (group_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (group_id, user_id) DO NOTHING
			RETURNING group_id, user_id, joined_at
		)
		SELECT group_id, user_id, joined_at FROM ins
		UNION ALL
		SELECT group_id, user_id, joined_at FROM group_members WHERE group_id = $1 AND user_id = $2
		LIMIT 1
	`

	member := &Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(
		&member.GroupID,
		&member.UserID,
		&member.JoinedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// ListMembers retrieves all members of a group
func (r *Repository) ListMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	query := `
		SELECT gm.group_id, gm.user_id, gm.joined_at, u.username, u.first_name, u.last_name, g.name
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		JOIN groups g ON gm.group_id = g.id
		WHERE gm.group_id = $1
		ORDER BY u.last_name, u.first_name, u.id
	`
	return r.queryMembers(ctx, query, groupID)
}

// ListByUser retrieves all memberships of a user
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Member, error) {
	query := `
		SELECT gm.group_id, gm.user_id, gm.joined_at, u.username, u.first_name, u.last_name, g.name
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		JOIN groups g ON gm.group_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.name, g.id
	`
	return r.queryMembers(ctx, query, userID)
}

func (r *Repository) queryMembers(ctx context.Context, query string, arg int64) ([]*Member, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(
			&member.GroupID,
			&member.UserID,
			&member.JoinedAt,
			&member.Username,
			&member.FirstName,
			&member.LastName,
			&member.GroupName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// RemoveMember removes a user from a group and reports whether a row was deleted
func (r *Repository) RemoveMember(ctx context.Context, groupID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
