package mysql_test

import (
	"context"
	"testing"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"
	"Lee_Library/internal/repository/mysql/mysqltest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitFlushesAllRepositories(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()
	owner := mysqltest.SeedUser(t, gw, "alice")

	uow := gw.Begin(ctx)
	defer uow.Rollback()

	community := &model.Community{Name: "Readers", AdminID: owner.ID}
	require.NoError(t, mysql.For[model.Community](uow).Add(community))
	require.NotZero(t, community.ID)
	require.NoError(t, mysql.For[model.CommunityMember](uow).Add(&model.CommunityMember{
		CommunityID: community.ID,
		UserID:      owner.ID,
		IsModerator: true,
	}))
	assert.True(t, uow.Pending())

	// 同一工作单元内能读到未提交的写入
	n, err := mysql.For[model.CommunityMember](uow).Count(mysql.MembersOf(community.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, uow.Commit())
	assert.False(t, uow.Pending())

	other := gw.Begin(ctx)
	got, err := mysql.For[model.Community](other).Get(community.ID)
	require.NoError(t, err)
	assert.Equal(t, "Readers", got.Name)
	n, err = mysql.For[model.CommunityMember](other).Count(mysql.MembersOf(community.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUnitOfWork_RollbackDiscardsPending(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()
	owner := mysqltest.SeedUser(t, gw, "alice")

	uow := gw.Begin(ctx)
	require.NoError(t, mysql.For[model.Community](uow).Add(&model.Community{Name: "Readers", AdminID: owner.ID}))
	uow.Rollback()
	uow.Rollback()

	all, err := mysql.For[model.Community](gw.Begin(ctx)).GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRepository_GetMissing(t *testing.T) {
	gw := mysqltest.Open(t)

	_, err := mysql.For[model.Community](gw.Begin(context.Background())).Get(42)
	assert.ErrorIs(t, err, mysql.ErrNotFound)
}

func TestRepository_FindReturnsNilWhenAbsent(t *testing.T) {
	gw := mysqltest.Open(t)

	m, err := mysql.For[model.CommunityMember](gw.Begin(context.Background())).Find(mysql.MembershipOf(1, 2))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRepository_UniqueMembershipIsConflict(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()

	uow := gw.Begin(ctx)
	defer uow.Rollback()
	repo := mysql.For[model.CommunityMember](uow)
	require.NoError(t, repo.Add(&model.CommunityMember{CommunityID: 1, UserID: 2}))
	require.NoError(t, uow.Commit())

	err := repo.Add(&model.CommunityMember{CommunityID: 1, UserID: 2})
	if err == nil {
		err = uow.Commit()
	}
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRepository_QuerySpecPaginationAndOrder(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()
	author := mysqltest.SeedUser(t, gw, "bob")

	uow := gw.Begin(ctx)
	defer uow.Rollback()
	posts := mysql.For[model.CommunityPost](uow)
	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, posts.Add(&model.CommunityPost{CommunityID: 7, AuthorID: author.ID, Content: content}))
	}
	require.NoError(t, posts.Add(&model.CommunityPost{CommunityID: 8, AuthorID: author.ID, Content: "elsewhere"}))
	require.NoError(t, uow.Commit())

	spec := mysql.Where[model.CommunityPost]("community_id = ?", 7).OrderBy("id DESC")
	page, err := posts.Query(spec.Page(1, 1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Content)

	// 分页不影响计数
	n, err := posts.Count(spec.Page(1, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	withAuthor, err := posts.Query(mysql.PostsOf(7))
	require.NoError(t, err)
	require.Len(t, withAuthor, 3)
	require.NotNil(t, withAuthor[0].Author)
	assert.Equal(t, "bob", withAuthor[0].Author.Username)
}

func TestSpec_ComposeDoesNotMutateBase(t *testing.T) {
	base := mysql.Where[model.CommunityPost]("community_id = ?", 1)
	a := base.And("author_id = ?", 2)
	b := base.And("author_id = ?", 3)

	assert.Len(t, base.Criteria, 1)
	assert.Equal(t, []any{2}, a.Criteria[1].Args)
	assert.Equal(t, []any{3}, b.Criteria[1].Args)
	assert.False(t, base.IsPaginated())
	assert.True(t, base.Page(0, 10).IsPaginated())
}

func TestRepository_AdjustClampsAtZero(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()

	uow := gw.Begin(ctx)
	defer uow.Rollback()
	repo := mysql.For[model.Community](uow)
	c := &model.Community{Name: "Readers", AdminID: 1}
	require.NoError(t, repo.Add(c))
	require.NoError(t, repo.Adjust(c.ID, "post_count", 2))
	require.NoError(t, repo.Adjust(c.ID, "post_count", -5))
	require.NoError(t, uow.Commit())

	got, err := repo.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.PostCount)
}

func TestRepository_DeleteWhere(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()

	uow := gw.Begin(ctx)
	defer uow.Rollback()
	likes := mysql.For[model.PostLike](uow)
	require.NoError(t, likes.Add(&model.PostLike{PostID: 1, UserID: 1}))
	require.NoError(t, likes.Add(&model.PostLike{PostID: 1, UserID: 2}))
	require.NoError(t, likes.Add(&model.PostLike{PostID: 2, UserID: 1}))

	n, err := likes.DeleteWhere(mysql.Where[model.PostLike]("post_id = ?", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, uow.Commit())

	left, err := likes.GetAll()
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestUserRepository_FindUser(t *testing.T) {
	gw := mysqltest.Open(t)
	alice := mysqltest.SeedUser(t, gw, "alice")
	users := mysql.NewUserRepository(gw)

	got, err := users.FindUser(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.DisplayName())

	_, err = users.FindUser(context.Background(), alice.ID+100)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	gw := mysqltest.Open(t)
	ctx := context.Background()
	repo := mysql.NewOutboxRepository(gw)

	uow := gw.Begin(ctx)
	defer uow.Rollback()
	rows := mysql.For[model.NotificationOutbox](uow)
	first := &model.NotificationOutbox{EventID: "e1", NotificationID: 1, Recipient: 1, EventType: model.NotifyPostLike, Payload: "{}"}
	second := &model.NotificationOutbox{EventID: "e2", NotificationID: 2, Recipient: 2, EventType: model.NotifyPostLike, Payload: "{}"}
	require.NoError(t, rows.Add(first))
	require.NoError(t, rows.Add(second))
	require.NoError(t, uow.Commit())

	pending, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "e1", pending[0].EventID)

	require.NoError(t, repo.SuccessUpdate(ctx, first.ID))
	require.NoError(t, repo.RetryUpdate(ctx, second.ID))

	pending, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	failed, err := rows.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxFailed, failed.Status)
	assert.Equal(t, 1, failed.Retry)

	n, err := repo.Requeue(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	pending, err = repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
