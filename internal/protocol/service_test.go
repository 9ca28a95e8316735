package protocol

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/access"
	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/blob"
	"github.com/fkhayef/grpprotocol/internal/blob/memory"
	"github.com/fkhayef/grpprotocol/internal/cache"
	"github.com/fkhayef/grpprotocol/internal/export"
	"github.com/fkhayef/grpprotocol/internal/group"
	"github.com/fkhayef/grpprotocol/internal/resident"
)

// world holds groups, memberships and users shared by the fakes
type world struct {
	groups  map[int64]*group.Group
	members map[int64][]int64 // group -> users
	users   map[int64]string  // id -> username
}

func (w *world) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	for _, u := range w.members[groupID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeGroups struct{ w *world }

func (f fakeGroups) GetByID(ctx context.Context, p access.Principal, id int64) (*group.Group, error) {
	g, ok := f.w.groups[id]
	if !ok {
		return nil, group.ErrGroupNotFound
	}
	if ok, _ := f.w.IsMember(ctx, id, p.UserID); !ok && !p.IsStaff {
		return nil, access.ErrForbidden
	}
	return g, nil
}

func (fakeGroups) LoadTemplate(context.Context, *group.Group) []byte { return nil }

type fakeResidents struct{ list []*resident.Resident }

func (f *fakeResidents) ListActiveByGroup(context.Context, int64) ([]*resident.Resident, error) {
	return f.list, nil
}

type memStore struct {
	w         *world
	nextID    int64
	protocols map[int64]*Protocol
	items     map[int64]*Item
	todos     map[int64]*Todo
	presences map[int64]*Presence
}

func newMemStore(w *world) *memStore {
	return &memStore{
		w:         w,
		protocols: map[int64]*Protocol{},
		items:     map[int64]*Item{},
		todos:     map[int64]*Todo{},
		presences: map[int64]*Presence{},
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) Create(_ context.Context, groupID int64, date time.Time) (*Protocol, error) {
	now := time.Now()
	p := &Protocol{ID: m.id(), GroupID: groupID, ProtocolDate: date, Created: now, LastModified: now, Status: StatusDraft}
	m.protocols[p.ID] = p
	for _, u := range m.w.members[groupID] {
		pr := &Presence{ID: m.id(), ProtocolID: p.ID, UserID: u}
		m.presences[pr.ID] = pr
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Protocol, error) {
	p, ok := m.protocols[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, scope access.Scope, f Filter, limit, offset int) ([]*Protocol, int, error) {
	var out []*Protocol
	for _, p := range m.protocols {
		if !scope.All {
			if ok, _ := m.w.IsMember(ctx, p.GroupID, scope.UserID); !ok {
				continue
			}
		}
		if f.GroupID != nil && p.GroupID != *f.GroupID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) Update(_ context.Context, id int64, date *time.Time, status *Status) (*Protocol, error) {
	p, ok := m.protocols[id]
	if !ok {
		return nil, nil
	}
	if date != nil {
		p.ProtocolDate = *date
	}
	if status != nil {
		p.Status = *status
	}
	p.LastModified = time.Now()
	cp := *p
	return &cp, nil
}

func (m *memStore) MarkExported(_ context.Context, id int64, key string) (*Protocol, error) {
	p, ok := m.protocols[id]
	if !ok {
		return nil, nil
	}
	p.Status = StatusExported
	p.Exported = true
	p.ExportedFileKey = &key
	cp := *p
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := m.protocols[id]
	delete(m.protocols, id)
	return ok, nil
}

func (m *memStore) ListItems(_ context.Context, protocolID int64) ([]*Item, error) {
	items := []*Item{}
	for _, it := range m.items {
		if it.ProtocolID == protocolID {
			cp := *it
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *memStore) UpsertItem(_ context.Context, item *Item) (*Item, bool, error) {
	if existing, ok := m.items[item.ID]; ok && existing.ProtocolID == item.ProtocolID {
		existing.Name, existing.Position, existing.Value = item.Name, item.Position, item.Value
		cp := *existing
		return &cp, false, nil
	}
	cp := *item
	cp.ID = m.id()
	m.items[cp.ID] = &cp
	out := cp
	return &out, true, nil
}

func (m *memStore) DeleteItem(_ context.Context, protocolID, itemID int64) (bool, error) {
	it, ok := m.items[itemID]
	if !ok || it.ProtocolID != protocolID {
		return false, nil
	}
	delete(m.items, itemID)
	return true, nil
}

func (m *memStore) ListTodos(_ context.Context, protocolID int64) ([]*Todo, error) {
	todos := []*Todo{}
	for _, t := range m.todos {
		if t.ProtocolID == protocolID {
			cp := *t
			todos = append(todos, &cp)
		}
	}
	sort.Slice(todos, func(i, j int) bool { return todos[i].ID < todos[j].ID })
	return todos, nil
}

func (m *memStore) GetTodo(_ context.Context, protocolID, todoID int64) (*Todo, error) {
	t, ok := m.todos[todoID]
	if !ok || t.ProtocolID != protocolID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) CreateTodo(_ context.Context, t *Todo) (*Todo, error) {
	cp := *t
	cp.ID = m.id()
	m.todos[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) UpdateTodo(_ context.Context, t *Todo) (*Todo, error) {
	if _, ok := m.todos[t.ID]; !ok {
		return nil, nil
	}
	cp := *t
	m.todos[t.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) DeleteTodo(_ context.Context, protocolID, todoID int64) (bool, error) {
	t, ok := m.todos[todoID]
	if !ok || t.ProtocolID != protocolID {
		return false, nil
	}
	delete(m.todos, todoID)
	return true, nil
}

func (m *memStore) ListPresences(_ context.Context, protocolID int64) ([]*Presence, error) {
	out := []*Presence{}
	for _, pr := range m.presences {
		if pr.ProtocolID == protocolID {
			cp := *pr
			cp.Username = m.w.users[pr.UserID]
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memStore) UpsertPresence(_ context.Context, protocolID, userID int64, wasPresent bool) (*Presence, bool, error) {
	if _, ok := m.w.users[userID]; !ok {
		return nil, false, fmt.Errorf("failed to upsert presence: %w", &pq.Error{Code: "23503"})
	}
	for _, pr := range m.presences {
		if pr.ProtocolID == protocolID && pr.UserID == userID {
			pr.WasPresent = wasPresent
			cp := *pr
			return &cp, false, nil
		}
	}
	pr := &Presence{ID: m.id(), ProtocolID: protocolID, UserID: userID, WasPresent: wasPresent}
	m.presences[pr.ID] = pr
	cp := *pr
	return &cp, true, nil
}

var (
	member   = access.Principal{UserID: 1}
	outsider = access.Principal{UserID: 2}
	staff    = access.Principal{UserID: 9, IsStaff: true}
)

type fixture struct {
	svc       *Service
	store     *memStore
	world     *world
	files     blob.Store
	residents *fakeResidents
}

func newFixture(t *testing.T, kv cache.KV) *fixture {
	t.Helper()
	w := &world{
		groups: map[int64]*group.Group{
			1: {ID: 1, Name: "WG Sonnenhof", Address: "Hauptstraße 1", PostalCode: "12345", City: "Musterstadt"},
			2: {ID: 2, Name: "WG Lindenweg"},
		},
		members: map[int64][]int64{1: {1}, 2: {2}},
		users:   map[int64]string{1: "anna", 2: "ben", 3: "clara", 9: "admin"},
	}
	store := newMemStore(w)
	files := memory.New()
	residents := &fakeResidents{}
	logger := zap.NewNop()

	svc := NewService(store, Deps{
		Groups:     fakeGroups{w: w},
		Residents:  residents,
		Resolver:   access.NewResolver(w),
		Files:      files,
		Cache:      kv,
		MentionTTL: time.Minute,
		Pipeline:   export.NewPipeline(export.PDFRenderer{}, nil, nil, logger),
		Logger:     logger,
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, store: store, world: w, files: files, residents: residents}
}

func (f *fixture) createProtocol(t *testing.T, groupID int64) *Protocol {
	t.Helper()
	p, err := f.svc.Create(context.Background(), staff, &CreateProtocolRequest{GroupID: groupID, ProtocolDate: "2024-03-01"})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func TestService_Create_SnapshotsMembers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	p := f.createProtocol(t, 1)
	assert.Equal(t, StatusDraft, p.Status)
	assert.False(t, p.Exported)

	presences, err := f.svc.Presences(ctx, member, p.ID)
	require.NoError(t, err)
	require.Len(t, presences, 1)
	assert.Equal(t, int64(1), presences[0].UserID)
	assert.False(t, presences[0].WasPresent)

	// joining later does not add a row to existing protocols
	f.world.members[1] = append(f.world.members[1], 3)
	presences, err = f.svc.Presences(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Len(t, presences, 1)
}

func TestService_Create_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, member, &CreateProtocolRequest{GroupID: 42, ProtocolDate: "2024-03-01"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Create(ctx, member, &CreateProtocolRequest{GroupID: 2, ProtocolDate: "2024-03-01"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Create(ctx, member, &CreateProtocolRequest{GroupID: 1, ProtocolDate: "01.03.2024"})
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.Empty(t, f.store.protocols)
}

func TestService_Visibility(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	own := f.createProtocol(t, 1)
	other := f.createProtocol(t, 2)

	list, total, err := f.svc.List(ctx, member, Filter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, own.ID, list[0].ID)

	_, total, err = f.svc.List(ctx, staff, Filter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	bad := Status("archived")
	_, _, err = f.svc.List(ctx, member, Filter{Status: &bad}, 1, 20)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.GetByID(ctx, member, 999)
	assert.ErrorIs(t, err, ErrProtocolNotFound)
	_, err = f.svc.GetByID(ctx, member, other.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// membership is re-read on every call
	f.world.members[1] = nil
	_, err = f.svc.GetByID(ctx, member, own.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestService_UpsertItem(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)
	other := f.createProtocol(t, 1)

	item, created, err := f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{Name: "Intro", Position: 1, Value: strPtr("Hallo")})
	require.NoError(t, err)
	assert.True(t, created)

	updated, created, err := f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{ID: &item.ID, Name: "Einleitung", Position: 3})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, "Einleitung", updated.Name)
	assert.Nil(t, updated.Value)

	// an id from another protocol does not resolve here, so a new item is created
	_, created, err = f.svc.UpsertItem(ctx, member, other.ID, &UpsertItemRequest{ID: &item.ID, Name: "Fremd"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Einleitung", f.store.items[item.ID].Name)

	_, _, err = f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrItemNameRequired)

	assert.ErrorIs(t, f.svc.DeleteItem(ctx, member, p.ID, 12345), ErrItemNotFound)
	require.NoError(t, f.svc.DeleteItem(ctx, member, p.ID, item.ID))
}

func TestService_UpdatePresence_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)
	req := &UpdatePresenceRequest{UserID: 3, WasPresent: true}

	first, created, err := f.svc.UpdatePresence(ctx, member, p.ID, req)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.svc.UpdatePresence(ctx, member, p.ID, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.WasPresent)

	presences, _ := f.svc.Presences(ctx, member, p.ID)
	assert.Len(t, presences, 2)

	_, _, err = f.svc.UpdatePresence(ctx, member, p.ID, &UpdatePresenceRequest{UserID: 77, WasPresent: true})
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestService_Update(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)

	ready := StatusReady
	updated, err := f.svc.Update(ctx, member, p.ID, &UpdateProtocolRequest{Status: &ready, ProtocolDate: strPtr("2024-04-02")})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, updated.Status)
	assert.Equal(t, "2024-04-02", updated.ProtocolDate.Format(dateLayout))

	exported := StatusExported
	_, err = f.svc.Update(ctx, member, p.ID, &UpdateProtocolRequest{Status: &exported})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	unknown := Status("archived")
	_, err = f.svc.Update(ctx, member, p.ID, &UpdateProtocolRequest{Status: &unknown})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.Update(ctx, outsider, p.ID, &UpdateProtocolRequest{Status: &ready})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestService_Todos(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)

	todo, err := f.svc.CreateTodo(ctx, member, p.ID, &CreateTodoRequest{Was: "Einkaufen", Wer: "Anna", Wann: "Montag"})
	require.NoError(t, err)

	_, err = f.svc.CreateTodo(ctx, member, p.ID, &CreateTodoRequest{Wer: "Anna"})
	assert.ErrorIs(t, err, ErrTodoWasRequired)

	updated, err := f.svc.UpdateTodo(ctx, member, p.ID, todo.ID, &UpdateTodoRequest{Wann: strPtr("Dienstag")})
	require.NoError(t, err)
	assert.Equal(t, "Einkaufen", updated.Was)
	assert.Equal(t, "Dienstag", updated.Wann)

	_, err = f.svc.UpdateTodo(ctx, member, p.ID, 999, &UpdateTodoRequest{Wann: strPtr("x")})
	assert.ErrorIs(t, err, ErrTodoNotFound)

	data, filename, err := f.svc.TodoWorkbook(ctx, member, p.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
	assert.Contains(t, filename, "2024-03-01")

	require.NoError(t, f.svc.DeleteTodo(ctx, member, p.ID, todo.ID))
	assert.ErrorIs(t, f.svc.DeleteTodo(ctx, member, p.ID, todo.ID), ErrTodoNotFound)
}

func TestService_SourceKeepsPositionOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)

	// created out of order; position decides
	_, _, err := f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{Name: "Budget", Position: 2, Value: strPtr("B")})
	require.NoError(t, err)
	_, _, err = f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{Name: "Intro", Position: 1, Value: strPtr("A")})
	require.NoError(t, err)

	src, _, err := f.svc.source(ctx, member, p)
	require.NoError(t, err)
	assert.Equal(t, "WG Sonnenhof", src.GroupName)
	require.Len(t, src.Attendees, 1)
	assert.Equal(t, "anna", src.Attendees[0].Name)

	doc := export.Builder{}.Build(src)
	assert.Equal(t, []string{"1. Intro", "2. Budget"}, doc.TOC())
}

func TestService_PreviewHasNoSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)

	data, filename, err := f.svc.Preview(ctx, member, p.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, "protokoll_2024-03-01.pdf", filename)

	stored, _ := f.store.GetByID(ctx, p.ID)
	assert.Equal(t, StatusDraft, stored.Status)
	assert.Nil(t, stored.ExportedFileKey)
}

func TestService_ExportLocksProtocol(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)

	item, _, err := f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{Name: "Intro", Value: strPtr("Frag @Jane_Doe")})
	require.NoError(t, err)
	todo, err := f.svc.CreateTodo(ctx, member, p.ID, &CreateTodoRequest{Was: "Einkaufen"})
	require.NoError(t, err)

	exported, data, err := f.svc.Export(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExported, exported.Status)
	assert.True(t, exported.Exported)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	stored, filename, err := f.svc.ExportedFile(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, "protokoll_2024-03-01.pdf", filename)

	itemsBefore, _ := f.store.ListItems(ctx, p.ID)
	todosBefore, _ := f.store.ListTodos(ctx, p.ID)
	presencesBefore, _ := f.store.ListPresences(ctx, p.ID)

	ready := StatusReady
	locked := []error{
		func() error { _, _, err := f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{Name: "Neu"}); return err }(),
		func() error {
			_, _, err := f.svc.UpsertItem(ctx, member, p.ID, &UpsertItemRequest{ID: &item.ID, Name: "Geändert"})
			return err
		}(),
		f.svc.DeleteItem(ctx, member, p.ID, item.ID),
		func() error { _, err := f.svc.CreateTodo(ctx, member, p.ID, &CreateTodoRequest{Was: "x"}); return err }(),
		func() error {
			_, err := f.svc.UpdateTodo(ctx, member, p.ID, todo.ID, &UpdateTodoRequest{Was: strPtr("y")})
			return err
		}(),
		f.svc.DeleteTodo(ctx, member, p.ID, todo.ID),
		func() error {
			_, _, err := f.svc.UpdatePresence(ctx, member, p.ID, &UpdatePresenceRequest{UserID: 1, WasPresent: true})
			return err
		}(),
		func() error { _, err := f.svc.Update(ctx, member, p.ID, &UpdateProtocolRequest{Status: &ready}); return err }(),
		f.svc.Delete(ctx, member, p.ID),
	}
	for i, err := range locked {
		assert.ErrorIs(t, err, ErrProtocolLocked, "mutation %d", i)
	}

	itemsAfter, _ := f.store.ListItems(ctx, p.ID)
	todosAfter, _ := f.store.ListTodos(ctx, p.ID)
	presencesAfter, _ := f.store.ListPresences(ctx, p.ID)
	assert.Equal(t, itemsBefore, itemsAfter)
	assert.Equal(t, todosBefore, todosAfter)
	assert.Equal(t, presencesBefore, presencesAfter)

	// outsiders are refused before the lock is considered
	_, _, err = f.svc.UpsertItem(ctx, outsider, p.ID, &UpsertItemRequest{Name: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestService_UploadExportedFileReplacesArtifact(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	p := f.createProtocol(t, 1)

	_, err := f.svc.UploadExportedFile(ctx, member, p.ID, "scan.docx", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, blob.ErrInvalidPDF)

	first, err := f.svc.UploadExportedFile(ctx, member, p.ID, "scan.pdf", bytes.NewReader([]byte("%PDF-first")))
	require.NoError(t, err)
	assert.Equal(t, StatusExported, first.Status)
	firstKey := *first.ExportedFileKey

	second, err := f.svc.UploadExportedFile(ctx, member, p.ID, "scan.pdf", bytes.NewReader([]byte("%PDF-second")))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *second.ExportedFileKey)

	data, _, err := f.svc.ExportedFile(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-second", string(data))

	_, _, err = f.files.Get(ctx, firstKey)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	assert.NotNil(t, f.svc.ExportedFileURL(ctx, second))
}

func TestService_ExportedFileMissing(t *testing.T) {
	f := newFixture(t, nil)
	p := f.createProtocol(t, 1)

	_, _, err := f.svc.ExportedFile(context.Background(), member, p.ID)
	assert.ErrorIs(t, err, ErrExportedFileNotFound)
}

func TestService_MentionsAreCachedPerGroup(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := newFixture(t, cache.NewRedisKV(client))
	ctx := context.Background()
	p := f.createProtocol(t, 1)
	f.residents.list = []*resident.Resident{{ID: 5, GroupID: 1, FirstName: "Jane", LastName: "Doe"}}

	got, err := f.svc.Mentions(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{ID: 5, Token: "Jane_Doe", Display: "Jane Doe"}}, got)
	assert.True(t, mr.Exists(cache.MentionKey(1)))
	assert.Equal(t, time.Minute, mr.TTL(cache.MentionKey(1)))

	f.residents.list = nil
	got, err = f.svc.Mentions(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	mr.Del(cache.MentionKey(1))
	got, err = f.svc.Mentions(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.Mentions(ctx, outsider, p.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
