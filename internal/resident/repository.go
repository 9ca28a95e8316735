package resident

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fkhayef/grpprotocol/internal/access"
)

// Repository handles resident data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new resident repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const residentColumns = `id, group_id, first_name, last_name, picture_key, moved_in, moved_out, created_at`

func scanResident(row interface{ Scan(...interface{}) error }) (*Resident, error) {
	res := &Resident{}
	err := row.Scan(
		&res.ID,
		&res.GroupID,
		&res.FirstName,
		&res.LastName,
		&res.PictureKey,
		&res.MovedIn,
		&res.MovedOut,
		&res.CreatedAt,
	)
	return res, err
}

// Create inserts a new resident
func (r *Repository) Create(ctx context.Context, res *Resident) (*Resident, error) {
	query := `
		INSERT INTO residents (group_id, first_name, last_name, moved_in, moved_out)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + residentColumns

	created, err := scanResident(r.db.QueryRowContext(ctx, query, res.GroupID, res.FirstName, res.LastName, res.MovedIn, res.MovedOut))
	if err != nil {
		return nil, fmt.Errorf("failed to create resident: %w", err)
	}
	return created, nil
}

// GetByID retrieves a resident by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE id = $1`

	res, err := scanResident(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}
	return res, nil
}

// List retrieves the residents visible under scope that match f
func (r *Repository) List(ctx context.Context, scope access.Scope, f Filter, limit, offset int) ([]*Resident, int, error) {
	scopeSQL, args := access.GroupFilter(scope, "group_id", 1)
	where := []string{scopeSQL}
	if f.GroupID != nil {
		args = append(args, *f.GroupID)
		where = append(where, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if f.ActiveOnly {
		where = append(where, "moved_out IS NULL")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM residents WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count residents: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM residents
		WHERE %s
		ORDER BY last_name, first_name, id
		LIMIT $%d OFFSET $%d
	`, residentColumns, cond, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	residents, err := scanAll(rows)
	if err != nil {
		return nil, 0, err
	}
	return residents, total, nil
}

// ListActiveByGroup returns the residents currently living in groupID
func (r *Repository) ListActiveByGroup(ctx context.Context, groupID int64) ([]*Resident, error) {
	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE group_id = $1 AND moved_out IS NULL
		ORDER BY first_name, last_name, id
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active residents: %w", err)
	}
	defer rows.Close()

	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]*Resident, error) {
	var residents []*Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		residents = append(residents, res)
	}
	return residents, rows.Err()
}

// Update writes all editable fields of res
func (r *Repository) Update(ctx context.Context, res *Resident) (*Resident, error) {
	query := `
		UPDATE residents
		SET group_id = $2,
		    first_name = $3,
		    last_name = $4,
		    moved_in = $5,
		    moved_out = $6
		WHERE id = $1
		RETURNING ` + residentColumns

	updated, err := scanResident(r.db.QueryRowContext(ctx, query, res.ID, res.GroupID, res.FirstName, res.LastName, res.MovedIn, res.MovedOut))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update resident: %w", err)
	}
	return updated, nil
}

// SetPictureKey stores the picture reference
func (r *Repository) SetPictureKey(ctx context.Context, id int64, key *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE residents SET picture_key = $2 WHERE id = $1`, id, key); err != nil {
		return fmt.Errorf("failed to set picture: %w", err)
	}
	return nil
}

// Delete removes a resident and reports whether a row was deleted
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM residents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete resident: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
