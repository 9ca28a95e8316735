package protocol

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fkhayef/grpprotocol/internal/access"
)

// Repository handles protocol data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new protocol repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const protocolColumns = `id, group_id, protocol_date, created, last_modified, status, exported, exported_file_key`

func scanProtocol(row interface{ Scan(...interface{}) error }) (*Protocol, error) {
	p := &Protocol{}
	err := row.Scan(
		&p.ID,
		&p.GroupID,
		&p.ProtocolDate,
		&p.Created,
		&p.LastModified,
		&p.Status,
		&p.Exported,
		&p.ExportedFileKey,
	)
	return p, err
}

// Create inserts a protocol together with one presence row per current
// member of the group. Both happen in one transaction.
func (r *Repository) Create(ctx context.Context, groupID int64, date time.Time) (*Protocol, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO protocols (group_id, protocol_date)
		VALUES ($1, $2)
		RETURNING ` + protocolColumns

	p, err := scanProtocol(tx.QueryRowContext(ctx, query, groupID, date))
	if err != nil {
		return nil, fmt.Errorf("failed to create protocol: %w", err)
	}

	presenceQuery := `
		INSERT INTO protocol_presences (protocol_id, user_id)
		SELECT $1, user_id FROM group_members WHERE group_id = $2
	`
	if _, err := tx.ExecContext(ctx, presenceQuery, p.ID, groupID); err != nil {
		return nil, fmt.Errorf("failed to create presences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit protocol: %w", err)
	}
	return p, nil
}

// GetByID retrieves a protocol without its items
func (r *Repository) GetByID(ctx context.Context, id int64) (*Protocol, error) {
	query := `SELECT ` + protocolColumns + ` FROM protocols WHERE id = $1`

	p, err := scanProtocol(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get protocol: %w", err)
	}
	return p, nil
}

// List retrieves the protocols visible under scope, newest first
func (r *Repository) List(ctx context.Context, scope access.Scope, f Filter, limit, offset int) ([]*Protocol, int, error) {
	scopeSQL, args := access.GroupFilter(scope, "group_id", 1)
	where := []string{scopeSQL}
	if f.GroupID != nil {
		args = append(args, *f.GroupID)
		where = append(where, fmt.Sprintf("group_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM protocols WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count protocols: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM protocols
		WHERE %s
		ORDER BY protocol_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, protocolColumns, cond, n+1, n+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list protocols: %w", err)
	}
	defer rows.Close()

	var protocols []*Protocol
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan protocol: %w", err)
		}
		protocols = append(protocols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return protocols, total, nil
}

// Update changes date and status; nil leaves the column unchanged
func (r *Repository) Update(ctx context.Context, id int64, date *time.Time, status *Status) (*Protocol, error) {
	query := `
		UPDATE protocols
		SET protocol_date = COALESCE($2, protocol_date),
		    status = COALESCE($3, status),
		    last_modified = NOW()
		WHERE id = $1
		RETURNING ` + protocolColumns

	var statusArg interface{}
	if status != nil {
		statusArg = string(*status)
	}
	var dateArg interface{}
	if date != nil {
		dateArg = *date
	}

	p, err := scanProtocol(r.db.QueryRowContext(ctx, query, id, dateArg, statusArg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update protocol: %w", err)
	}
	return p, nil
}

// MarkExported stores the artifact key and locks the protocol
func (r *Repository) MarkExported(ctx context.Context, id int64, key string) (*Protocol, error) {
	query := `
		UPDATE protocols
		SET status = 'exported',
		    exported = TRUE,
		    exported_file_key = $2,
		    last_modified = NOW()
		WHERE id = $1
		RETURNING ` + protocolColumns

	p, err := scanProtocol(r.db.QueryRowContext(ctx, query, id, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark protocol exported: %w", err)
	}
	return p, nil
}

// Delete removes a protocol; items, todos and presences cascade
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.deleteWhere(ctx, "protocol", `DELETE FROM protocols WHERE id = $1`, id)
}

func (r *Repository) deleteWhere(ctx context.Context, what, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", what, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

const itemColumns = `id, protocol_id, name, position, value`

func scanItem(row interface{ Scan(...interface{}) error }) (*Item, error) {
	item := &Item{}
	err := row.Scan(&item.ID, &item.ProtocolID, &item.Name, &item.Position, &item.Value)
	return item, err
}

// ListItems returns the items of a protocol ordered by position, then insertion
func (r *Repository) ListItems(ctx context.Context, protocolID int64) ([]*Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM protocol_items
		WHERE protocol_id = $1
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, protocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpsertItem overwrites the item with item.ID if it belongs to the protocol
// and inserts a new row otherwise. The bool reports an insert.
func (r *Repository) UpsertItem(ctx context.Context, item *Item) (*Item, bool, error) {
	if item.ID != 0 {
		query := `
			UPDATE protocol_items
			SET name = $3, position = $4, value = $5
			WHERE id = $1 AND protocol_id = $2
			RETURNING ` + itemColumns

		updated, err := scanItem(r.db.QueryRowContext(ctx, query, item.ID, item.ProtocolID, item.Name, item.Position, item.Value))
		if err == nil {
			return updated, false, nil
		}
		if err != sql.ErrNoRows {
			return nil, false, fmt.Errorf("failed to update item: %w", err)
		}
	}

	query := `
		INSERT INTO protocol_items (protocol_id, name, position, value)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + itemColumns

	created, err := scanItem(r.db.QueryRowContext(ctx, query, item.ProtocolID, item.Name, item.Position, item.Value))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create item: %w", err)
	}
	return created, true, nil
}

// DeleteItem removes an item of the protocol
func (r *Repository) DeleteItem(ctx context.Context, protocolID, itemID int64) (bool, error) {
	return r.deleteWhere(ctx, "item", `DELETE FROM protocol_items WHERE id = $1 AND protocol_id = $2`, itemID, protocolID)
}

const todoColumns = `id, protocol_id, was, wer, wann, position, created_at, updated_at`

func scanTodo(row interface{ Scan(...interface{}) error }) (*Todo, error) {
	t := &Todo{}
	err := row.Scan(&t.ID, &t.ProtocolID, &t.Was, &t.Wer, &t.Wann, &t.Position, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTodos returns the to-dos of a protocol in position order
func (r *Repository) ListTodos(ctx context.Context, protocolID int64) ([]*Todo, error) {
	query := `
		SELECT ` + todoColumns + `
		FROM protocol_todos
		WHERE protocol_id = $1
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query, protocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []*Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// GetTodo retrieves one to-do of the protocol
func (r *Repository) GetTodo(ctx context.Context, protocolID, todoID int64) (*Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM protocol_todos WHERE id = $1 AND protocol_id = $2`

	t, err := scanTodo(r.db.QueryRowContext(ctx, query, todoID, protocolID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return t, nil
}

// CreateTodo inserts a new to-do
func (r *Repository) CreateTodo(ctx context.Context, t *Todo) (*Todo, error) {
	query := `
		INSERT INTO protocol_todos (protocol_id, was, wer, wann, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + todoColumns

	created, err := scanTodo(r.db.QueryRowContext(ctx, query, t.ProtocolID, t.Was, t.Wer, t.Wann, t.Position))
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return created, nil
}

// UpdateTodo writes all fields of t
func (r *Repository) UpdateTodo(ctx context.Context, t *Todo) (*Todo, error) {
	query := `
		UPDATE protocol_todos
		SET was = $3, wer = $4, wann = $5, position = $6, updated_at = NOW()
		WHERE id = $1 AND protocol_id = $2
		RETURNING ` + todoColumns

	updated, err := scanTodo(r.db.QueryRowContext(ctx, query, t.ID, t.ProtocolID, t.Was, t.Wer, t.Wann, t.Position))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	return updated, nil
}

// DeleteTodo removes a to-do of the protocol
func (r *Repository) DeleteTodo(ctx context.Context, protocolID, todoID int64) (bool, error) {
	return r.deleteWhere(ctx, "todo", `DELETE FROM protocol_todos WHERE id = $1 AND protocol_id = $2`, todoID, protocolID)
}

// ListPresences returns the attendance rows with the members' names
func (r *Repository) ListPresences(ctx context.Context, protocolID int64) ([]*Presence, error) {
	query := `
		SELECT pp.id, pp.protocol_id, pp.user_id, pp.was_present, u.username, u.first_name, u.last_name
		FROM protocol_presences pp
		JOIN users u ON u.id = pp.user_id
		WHERE pp.protocol_id = $1
		ORDER BY u.last_name, u.first_name, u.username
	`

	rows, err := r.db.QueryContext(ctx, query, protocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list presences: %w", err)
	}
	defer rows.Close()

	presences := []*Presence{}
	for rows.Next() {
		p := &Presence{}
		if err := rows.Scan(&p.ID, &p.ProtocolID, &p.UserID, &p.WasPresent, &p.Username, &p.FirstName, &p.LastName); err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		presences = append(presences, p)
	}
	return presences, rows.Err()
}

// UpsertPresence sets was_present for (protocol, user). The bool reports
// whether the row was inserted by this call.
func (r *Repository) UpsertPresence(ctx context.Context, protocolID, userID int64, wasPresent bool) (*Presence, bool, error) {
	query := `
		WITH upsert AS (
			INSERT INTO protocol_presences (protocol_id, user_id, was_present)
			VALUES ($1, $2, $3)
			ON CONFLICT (protocol_id, user_id) DO UPDATE SET was_present = EXCLUDED.was_present
			RETURNING id, protocol_id, user_id, was_present, (xmax = 0) AS created
		)
		SELECT up.id, up.protocol_id, up.user_id, up.was_present, up.created, u.username, u.first_name, u.last_name
		FROM upsert up
		JOIN users u ON u.id = up.user_id
	`

	p := &Presence{}
	var created bool
	err := r.db.QueryRowContext(ctx, query, protocolID, userID, wasPresent).Scan(
		&p.ID,
		&p.ProtocolID,
		&p.UserID,
		&p.WasPresent,
		&created,
		&p.Username,
		&p.FirstName,
		&p.LastName,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert presence: %w", err)
	}
	return p, created, nil
}
