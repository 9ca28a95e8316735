package group

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fkhayef/grpprotocol/internal/access"
	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/blob"
	"github.com/fkhayef/grpprotocol/internal/blob/memory"
)

// memStore keeps groups and memberships in maps
type memStore struct {
	nextID  int64
	groups  map[int64]*Group
	members map[int64]map[int64]time.Time
}

func newMemStore() *memStore {
	return &memStore{groups: map[int64]*Group{}, members: map[int64]map[int64]time.Time{}}
}

func (m *memStore) Create(_ context.Context, req *CreateGroupRequest) (*Group, error) {
	m.nextID++
	g := &Group{ID: m.nextID, Name: req.Name, Address: req.Address, PostalCode: req.PostalCode, City: req.City, Color: req.Color, CreatedAt: time.Now()}
	m.groups[g.ID] = g
	return g, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (m *memStore) List(_ context.Context, scope access.Scope, limit, offset int) ([]*Group, int, error) {
	var out []*Group
	for id, g := range m.groups {
		if scope.All {
			out = append(out, g)
			continue
		}
		if _, ok := m.members[id][scope.UserID]; ok {
			out = append(out, g)
		}
	}
	return out, len(out), nil
}

func (m *memStore) Update(_ context.Context, id int64, req *UpdateGroupRequest) (*Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&g.Name, req.Name)
	apply(&g.Address, req.Address)
	apply(&g.PostalCode, req.PostalCode)
	apply(&g.City, req.City)
	apply(&g.Color, req.Color)
	cp := *g
	return &cp, nil
}

func (m *memStore) SetTemplateKey(_ context.Context, id int64, key *string) error {
	m.groups[id].PDFTemplateKey = key
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) (bool, error) {
	_, ok := m.groups[id]
	delete(m.groups, id)
	delete(m.members, id)
	return ok, nil
}

func (m *memStore) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	_, ok := m.members[groupID][userID]
	return ok, nil
}

func (m *memStore) AddMember(_ context.Context, groupID, userID int64) (*Member, error) {
	if m.members[groupID] == nil {
		m.members[groupID] = map[int64]time.Time{}
	}
	joined, ok := m.members[groupID][userID]
	if !ok {
		joined = time.Now()
		m.members[groupID][userID] = joined
	}
	return &Member{GroupID: groupID, UserID: userID, JoinedAt: joined}, nil
}

func (m *memStore) ListMembers(_ context.Context, groupID int64) ([]*Member, error) {
	var out []*Member
	for userID, joined := range m.members[groupID] {
		out = append(out, &Member{GroupID: groupID, UserID: userID, JoinedAt: joined})
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID int64) ([]*Member, error) {
	var out []*Member
	for groupID, users := range m.members {
		if joined, ok := users[userID]; ok {
			out = append(out, &Member{GroupID: groupID, UserID: userID, JoinedAt: joined})
		}
	}
	return out, nil
}

func (m *memStore) RemoveMember(_ context.Context, groupID, userID int64) (bool, error) {
	_, ok := m.members[groupID][userID]
	delete(m.members[groupID], userID)
	return ok, nil
}

var (
	staff    = access.Principal{UserID: 100, IsStaff: true}
	member   = access.Principal{UserID: 1}
	outsider = access.Principal{UserID: 2}
)

func newTestService(t *testing.T) (*Service, *memStore, blob.Store) {
	t.Helper()
	store := newMemStore()
	files := memory.New()
	return NewService(store, access.NewResolver(store), files, zap.NewNop()), store, files
}

func seedGroup(t *testing.T, svc *Service, store *memStore) *Group {
	t.Helper()
	g, err := svc.Create(context.Background(), &CreateGroupRequest{
		Name: "WG Sonnenhof", Address: "Hauptstraße 1", PostalCode: "12345", City: "Musterstadt",
	})
	require.NoError(t, err)
	_, err = store.AddMember(context.Background(), g.ID, member.UserID)
	require.NoError(t, err)
	return g
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateGroupRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Create(ctx, &CreateGroupRequest{Name: "A", Color: "red"})
	assert.ErrorIs(t, err, ErrInvalidColor)

	g, err := svc.Create(ctx, &CreateGroupRequest{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, "#000000", g.Color)
}

func TestService_Update_PartialColorOnly(t *testing.T) {
	svc, store, _ := newTestService(t)
	g := seedGroup(t, svc, store)
	color := "#ff0000"

	updated, err := svc.Update(context.Background(), member, g.ID, &UpdateGroupRequest{Color: &color})
	require.NoError(t, err)

	assert.Equal(t, "#ff0000", updated.Color)
	assert.Equal(t, "WG Sonnenhof", updated.Name)
	assert.Equal(t, "Hauptstraße 1", updated.Address)
	assert.Equal(t, "Musterstadt", updated.City)
}

func TestService_Update_ExplicitEmptyStringApplied(t *testing.T) {
	svc, store, _ := newTestService(t)
	g := seedGroup(t, svc, store)
	empty := ""

	updated, err := svc.Update(context.Background(), staff, g.ID, &UpdateGroupRequest{Address: &empty})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Address)
	assert.Equal(t, "12345 Musterstadt", updated.FullAddress())
}

func TestService_AccessOrder(t *testing.T) {
	svc, store, _ := newTestService(t)
	g := seedGroup(t, svc, store)
	ctx := context.Background()
	color := "#00ff00"

	// missing group is NotFound for everybody
	_, err := svc.GetByID(ctx, outsider, 999)
	assert.ErrorIs(t, err, ErrGroupNotFound)

	// existing group outside the caller's memberships is Forbidden
	_, err = svc.GetByID(ctx, outsider, g.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Update(ctx, outsider, g.ID, &UpdateGroupRequest{Color: &color})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	stored, _ := store.GetByID(ctx, g.ID)
	assert.Equal(t, "#000000", stored.Color)

	_, err = svc.GetByID(ctx, member, g.ID)
	assert.NoError(t, err)
	_, err = svc.GetByID(ctx, staff, g.ID)
	assert.NoError(t, err)
}

func TestService_List_Scoped(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedGroup(t, svc, store)
	_, err := svc.Create(context.Background(), &CreateGroupRequest{Name: "WG Abendrot"})
	require.NoError(t, err)

	groups, total, err := svc.List(context.Background(), member, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "WG Sonnenhof", groups[0].Name)

	_, total, err = svc.List(context.Background(), staff, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestService_Template(t *testing.T) {
	svc, store, files := newTestService(t)
	g := seedGroup(t, svc, store)
	ctx := context.Background()

	_, err := svc.Template(ctx, member, g.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Nil(t, svc.LoadTemplate(ctx, g))

	_, err = svc.UploadTemplate(ctx, member, g.ID, "briefkopf.docx", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, blob.ErrInvalidPDF)

	first, err := svc.UploadTemplate(ctx, member, g.ID, "briefkopf.pdf", bytes.NewReader([]byte("%PDF-1")))
	require.NoError(t, err)
	firstKey := *first.PDFTemplateKey

	second, err := svc.UploadTemplate(ctx, member, g.ID, "briefkopf.pdf", bytes.NewReader([]byte("%PDF-2")))
	require.NoError(t, err)

	data, err := svc.Template(ctx, member, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-2", string(data))
	assert.Equal(t, []byte("%PDF-2"), svc.LoadTemplate(ctx, second))

	// the replaced file is gone
	_, _, err = files.Get(ctx, firstKey)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	_, err = svc.Template(ctx, outsider, g.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestService_LoadTemplate_MissingFile(t *testing.T) {
	svc, store, _ := newTestService(t)
	g := seedGroup(t, svc, store)
	key := "groups/1/templates/gone.pdf"
	g.PDFTemplateKey = &key

	assert.Nil(t, svc.LoadTemplate(context.Background(), g))
}

func TestService_Membership(t *testing.T) {
	svc, store, _ := newTestService(t)
	g := seedGroup(t, svc, store)
	ctx := context.Background()

	_, err := svc.AddMember(ctx, outsider.UserID, 999)
	assert.ErrorIs(t, err, ErrGroupNotFound)

	m, err := svc.AddMember(ctx, outsider.UserID, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "WG Sonnenhof", m.GroupName)

	again, err := svc.AddMember(ctx, outsider.UserID, g.ID)
	require.NoError(t, err)
	assert.Equal(t, m.JoinedAt, again.JoinedAt)

	memberships, err := svc.Memberships(ctx, outsider.UserID)
	require.NoError(t, err)
	assert.Len(t, memberships, 1)

	require.NoError(t, svc.RemoveMember(ctx, outsider.UserID, g.ID))
	assert.ErrorIs(t, svc.RemoveMember(ctx, outsider.UserID, g.ID), ErrMemberNotFound)
}

func TestService_Delete(t *testing.T) {
	svc, store, _ := newTestService(t)
	g := seedGroup(t, svc, store)

	require.NoError(t, svc.Delete(context.Background(), g.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), g.ID), ErrGroupNotFound)
}

func TestGroup_FullAddress(t *testing.T) {
	assert.Equal(t, "Hauptstraße 1, 12345 Musterstadt", (&Group{Address: "Hauptstraße 1", PostalCode: "12345", City: "Musterstadt"}).FullAddress())
	assert.Equal(t, "Hauptstraße 1", (&Group{Address: "Hauptstraße 1"}).FullAddress())
	assert.Equal(t, "", (&Group{}).FullAddress())
}
