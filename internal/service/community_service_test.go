package service_test

import (
	"testing"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/model"
	"Lee_Library/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadersScenario(t *testing.T) {
	f := newFixture(t)

	readers, err := f.communities.CreateCommunity(f.ctx, f.alice.ID, "Readers", "books")
	require.NoError(t, err)
	members, err := f.communities.ListMembers(f.ctx, readers.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, f.alice.ID, members[0].UserID)
	assert.True(t, members[0].IsModerator)

	require.NoError(t, f.communities.JoinCommunity(f.ctx, f.bob.ID, readers.ID))
	view, err := f.communities.GetCommunity(f.ctx, f.bob.ID, readers.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.MemberCount)
	assert.Equal(t, "member", view.Standing)

	p1, err := f.posts.CreatePost(f.ctx, f.bob.ID, readers.ID, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, p1.AuthorID)
	view, err = f.communities.GetCommunity(f.ctx, f.alice.ID, readers.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.PostCount)
	assert.Equal(t, "owner", view.Standing)

	require.NoError(t, f.likes.LikePost(f.ctx, f.alice.ID, p1.ID))
	err = f.likes.LikePost(f.ctx, f.alice.ID, p1.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, readers.ID, f.bob.ID))
	// bob 不是所有者，不能动 alice
	err = f.communities.RemoveModerator(f.ctx, f.bob.ID, readers.ID, f.alice.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, f.communities.JoinCommunity(f.ctx, f.carol.ID, readers.ID))
	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, readers.ID, f.carol.ID))
	_, err = f.communities.BanUser(f.ctx, f.carol.ID, readers.ID, f.bob.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	removed, err := f.communities.BanUser(f.ctx, f.alice.ID, readers.ID, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Nil(t, f.membership(t, readers.ID, f.bob.ID))
}

func TestCreateCommunity(t *testing.T) {
	f := newFixture(t)

	_, err := f.communities.CreateCommunity(f.ctx, f.alice.ID, "  ", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.communities.CreateCommunity(f.ctx, 9999, "Ghosts", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.communities.CreateCommunity(f.ctx, f.alice.ID, "Readers", "")
	require.NoError(t, err)
	_, err = f.communities.CreateCommunity(f.ctx, f.bob.ID, "Readers", "")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	list, err := f.communities.ListCommunities(f.ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestJoinLeaveCycle(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers")

	require.NoError(t, f.communities.JoinCommunity(f.ctx, f.bob.ID, c.ID))
	assert.ErrorIs(t, f.communities.JoinCommunity(f.ctx, f.bob.ID, c.ID), apperr.ErrConflict)
	assert.ErrorIs(t, f.communities.JoinCommunity(f.ctx, f.alice.ID, c.ID), apperr.ErrConflict)

	require.NoError(t, f.communities.LeaveCommunity(f.ctx, f.bob.ID, c.ID))
	assert.ErrorIs(t, f.communities.LeaveCommunity(f.ctx, f.bob.ID, c.ID), apperr.ErrNotFound)
	require.NoError(t, f.communities.JoinCommunity(f.ctx, f.bob.ID, c.ID))

	assert.ErrorIs(t, f.communities.JoinCommunity(f.ctx, f.bob.ID, 9999), apperr.ErrNotFound)
	assert.ErrorIs(t, f.communities.JoinCommunity(f.ctx, 9999, c.ID), apperr.ErrNotFound)
}

func TestOwnerCannotLeave(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers")

	err := f.communities.LeaveCommunity(f.ctx, f.alice.ID, c.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.NotNil(t, f.membership(t, c.ID, f.alice.ID))
}

func TestModeratorRoundTrip(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers", f.bob)

	before := f.membership(t, c.ID, f.bob.ID).IsModerator
	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.bob.ID))
	assert.True(t, f.membership(t, c.ID, f.bob.ID).IsModerator)
	assert.ErrorIs(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.bob.ID), apperr.ErrConflict)

	require.NoError(t, f.communities.RemoveModerator(f.ctx, f.alice.ID, c.ID, f.bob.ID))
	assert.Equal(t, before, f.membership(t, c.ID, f.bob.ID).IsModerator)
	assert.ErrorIs(t, f.communities.RemoveModerator(f.ctx, f.alice.ID, c.ID, f.bob.ID), apperr.ErrInvalidState)
}

func TestAssignModeratorRules(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers", f.bob, f.carol)

	assert.ErrorIs(t, f.communities.AssignModerator(f.ctx, f.bob.ID, c.ID, f.carol.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.dave.ID), apperr.ErrNotFound)
	assert.ErrorIs(t, f.communities.RemoveModerator(f.ctx, f.alice.ID, c.ID, f.alice.ID), apperr.ErrInvalidState)
}

func TestModeratorNotifications(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers", f.bob, f.carol)

	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.bob.ID))

	assert.Len(t, f.notifications(t, f.bob.ID, model.NotifyModeratorAssigned), 1)
	carols := f.notifications(t, f.carol.ID, model.NotifyModeratorAssigned)
	require.Len(t, carols, 1)
	assert.Contains(t, carols[0].Message, "bob")
	assert.Empty(t, f.notifications(t, f.alice.ID, model.NotifyModeratorAssigned))
}

func TestBanRules(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers", f.bob, f.carol, f.dave)
	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.bob.ID))
	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.carol.ID))

	t.Run("owner is never removable", func(t *testing.T) {
		for _, requester := range []uint64{f.alice.ID, f.bob.ID, f.dave.ID, 9999} {
			_, err := f.communities.BanUser(f.ctx, requester, c.ID, f.alice.ID)
			require.Error(t, err)
			code := apperr.CodeOf(err)
			assert.Contains(t, []apperr.Code{apperr.CodeForbidden, apperr.CodeInvalidState}, code)
		}
		assert.NotNil(t, f.membership(t, c.ID, f.alice.ID))
	})

	t.Run("plain member cannot ban", func(t *testing.T) {
		_, err := f.communities.BanUser(f.ctx, f.dave.ID, c.ID, f.bob.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("moderator cannot ban moderator", func(t *testing.T) {
		_, err := f.communities.BanUser(f.ctx, f.bob.ID, c.ID, f.carol.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("moderator bans member", func(t *testing.T) {
		removed, err := f.communities.BanUser(f.ctx, f.bob.ID, c.ID, f.dave.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = f.communities.BanUser(f.ctx, f.bob.ID, c.ID, f.dave.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("unban re-adds as plain member", func(t *testing.T) {
		added, err := f.communities.UnbanUser(f.ctx, f.bob.ID, c.ID, f.dave.ID)
		require.NoError(t, err)
		assert.True(t, added)
		m := f.membership(t, c.ID, f.dave.ID)
		require.NotNil(t, m)
		assert.False(t, m.IsModerator)

		added, err = f.communities.UnbanUser(f.ctx, f.bob.ID, c.ID, f.dave.ID)
		require.NoError(t, err)
		assert.False(t, added)

		_, err = f.communities.UnbanUser(f.ctx, f.dave.ID, c.ID, f.carol.ID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}

func TestPermissionResolver(t *testing.T) {
	f := newFixture(t)
	c := f.community(t, "Readers", f.bob, f.carol)
	require.NoError(t, f.communities.AssignModerator(f.ctx, f.alice.ID, c.ID, f.carol.ID))
	r := service.NewPermissionResolver(f.gw)

	cases := map[uint64]service.Standing{
		f.alice.ID: service.Owner,
		f.carol.ID: service.Moderator,
		f.bob.ID:   service.Member,
		f.dave.ID:  service.Outsider,
	}
	for userID, want := range cases {
		got, err := r.Resolve(f.ctx, c.ID, userID)
		require.NoError(t, err)
		assert.Equal(t, want, got, "user %d", userID)
	}

	got, err := r.Resolve(f.ctx, 9999, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, service.Outsider, got)

	assert.True(t, service.Owner.AtLeast(service.Moderator))
	assert.False(t, service.Member.AtLeast(service.Moderator))
	assert.Equal(t, "moderator", service.Moderator.String())
}
