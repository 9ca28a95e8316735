package protocol

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/grpprotocol/internal/access"
)

var (
	protocolCols = []string{"id", "group_id", "protocol_date", "created", "last_modified", "status", "exported", "exported_file_key"}
	itemCols     = []string{"id", "protocol_id", "name", "position", "value"}
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func protocolRow(id int64, status Status) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(protocolCols).
		AddRow(id, 1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), now, now, string(status), status == StatusExported, nil)
}

func TestRepository_Create_FansOutPresences(t *testing.T) {
	repo, mock := newMockRepo(t)
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO protocols (group_id, protocol_date)`)).
		WithArgs(int64(1), date).
		WillReturnRows(protocolRow(7, StatusDraft))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO protocol_presences (protocol_id, user_id)
		SELECT $1, user_id FROM group_members WHERE group_id = $2`)).
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	p, err := repo.Create(context.Background(), 1, date)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, StatusDraft, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_RollsBackWhenPresencesFail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO protocols`)).
		WillReturnRows(protocolRow(7, StatusDraft))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO protocol_presences`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), 1, time.Now())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM protocols WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnError(sql.ErrNoRows)

	p, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRepository_List_ScopedToMember(t *testing.T) {
	repo, mock := newMockRepo(t)
	status := StatusExported

	cond := `group_id IN (SELECT group_id FROM group_members WHERE user_id = $1) AND status = $2`
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM protocols WHERE ` + cond)).
		WithArgs(int64(4), "exported").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(cond)).
		WithArgs(int64(4), "exported", 20, 0).
		WillReturnRows(protocolRow(9, StatusExported))

	protocols, total, err := repo.List(context.Background(), access.Scope{UserID: 4}, Filter{Status: &status}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, protocols, 1)
	assert.True(t, protocols[0].Exported)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update_LeavesOmittedFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	ready := StatusReady

	mock.ExpectQuery(regexp.QuoteMeta(`SET protocol_date = COALESCE($2, protocol_date)`)).
		WithArgs(int64(7), nil, "ready").
		WillReturnRows(protocolRow(7, StatusReady))

	p, err := repo.Update(context.Background(), 7, nil, &ready)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertItem_FallsBackToInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	value := "A"

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE protocol_items`)).
		WithArgs(int64(99), int64(7), "Intro", 1, &value).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO protocol_items`)).
		WithArgs(int64(7), "Intro", 1, &value).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(100, 7, "Intro", 1, "A"))

	item, created, err := repo.UpsertItem(context.Background(), &Item{ID: 99, ProtocolID: 7, Name: "Intro", Position: 1, Value: &value})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(100), item.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpsertItem_UpdatesInPlace(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND protocol_id = $2`)).
		WithArgs(int64(5), int64(7), "Budget", 2, nil).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(5, 7, "Budget", 2, nil))

	item, created, err := repo.UpsertItem(context.Background(), &Item{ID: 5, ProtocolID: 7, Name: "Budget", Position: 2})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, item.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListItems_Order(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY position, id`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(2, 7, "Intro", 1, "A").
			AddRow(1, 7, "Budget", 2, "B"))

	items, err := repo.ListItems(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Intro", items[0].Name)
}

func TestRepository_UpsertPresence_ReportsCreated(t *testing.T) {
	repo, mock := newMockRepo(t)
	cols := []string{"id", "protocol_id", "user_id", "was_present", "created", "username", "first_name", "last_name"}

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (protocol_id, user_id) DO UPDATE`)).
		WithArgs(int64(7), int64(3), true).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(11, 7, 3, true, true, "clara", "Clara", "Klein"))
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (protocol_id, user_id) DO UPDATE`)).
		WithArgs(int64(7), int64(3), true).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(11, 7, 3, true, false, "clara", "Clara", "Klein"))

	first, created, err := repo.UpsertPresence(context.Background(), 7, 3, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Clara Klein", first.DisplayName())

	second, created, err := repo.UpsertPresence(context.Background(), 7, 3, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRepository_DeleteItem_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM protocol_items WHERE id = $1 AND protocol_id = $2`)).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeleteItem(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}
