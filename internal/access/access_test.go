package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/grpprotocol/internal/apperr"
)

type fakeMemberships struct {
	members map[int64][]int64 // group -> users
	calls   int
	err     error
}

func (f *fakeMemberships) IsMember(_ context.Context, groupID, userID int64) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	for _, u := range f.members[groupID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestScope(t *testing.T) {
	r := NewResolver(&fakeMemberships{})

	assert.Equal(t, Scope{All: true}, r.Scope(Principal{UserID: 3, IsStaff: true}))
	assert.Equal(t, Scope{UserID: 3}, r.Scope(Principal{UserID: 3}))
}

func TestRequireGroup(t *testing.T) {
	fm := &fakeMemberships{members: map[int64][]int64{1: {10}, 2: {20}}}
	r := NewResolver(fm)
	ctx := context.Background()

	require.NoError(t, r.RequireGroup(ctx, Principal{UserID: 10}, 1))

	err := r.RequireGroup(ctx, Principal{UserID: 10}, 2)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	// staff never hits the store
	before := fm.calls
	require.NoError(t, r.RequireGroup(ctx, Principal{UserID: 99, IsStaff: true}, 2))
	assert.Equal(t, before, fm.calls)
}

func TestRequireGroup_RereadsMembershipEveryCall(t *testing.T) {
	fm := &fakeMemberships{members: map[int64][]int64{1: {10}}}
	r := NewResolver(fm)
	ctx := context.Background()
	p := Principal{UserID: 10}

	require.NoError(t, r.RequireGroup(ctx, p, 1))
	fm.members[1] = nil
	assert.Error(t, r.RequireGroup(ctx, p, 1))
	assert.Equal(t, 2, fm.calls)
}

func TestRequireGroup_StoreError(t *testing.T) {
	r := NewResolver(&fakeMemberships{err: errors.New("conn reset")})

	err := r.RequireGroup(context.Background(), Principal{UserID: 1}, 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperr.ErrForbidden))
}

func TestGroupFilter(t *testing.T) {
	clause, args := GroupFilter(Scope{All: true}, "p.group_id", 1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)

	clause, args = GroupFilter(Scope{UserID: 7}, "p.group_id", 3)
	assert.Equal(t, "p.group_id IN (SELECT group_id FROM group_members WHERE user_id = $3)", clause)
	assert.Equal(t, []interface{}{int64(7)}, args)
}
