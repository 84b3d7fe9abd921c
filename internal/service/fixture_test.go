package service_test

import (
	"context"
	"strings"
	"testing"

	"Lee_Library/internal/logger"
	"Lee_Library/internal/model"
	"Lee_Library/internal/pkg"
	"Lee_Library/internal/repository/mysql"
	"Lee_Library/internal/repository/mysql/mysqltest"
	"Lee_Library/internal/service"

	"github.com/stretchr/testify/require"
)

// wordFilter 含有 banned 中任一词即判为不合规
type wordFilter struct {
	banned []string
	calls  int
}

func (f *wordFilter) Classify(_ context.Context, text string) (pkg.Verdict, error) {
	f.calls++
	for _, w := range f.banned {
		if strings.Contains(text, w) {
			return pkg.Verdict{IsAppropriate: false, ReasonMessage: "contains " + w, Category: "abuse"}, nil
		}
	}
	return pkg.Verdict{IsAppropriate: true}, nil
}

type fixture struct {
	ctx         context.Context
	gw          *mysql.Gateway
	moderator   *wordFilter
	notifier    *service.Notifier
	communities *service.CommunityService
	posts       *service.PostService
	likes       *service.PostLikeService

	alice, bob, carol, dave *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gw := mysqltest.Open(t)
	log := logger.Discard()
	f := &fixture{
		ctx:       context.Background(),
		gw:        gw,
		moderator: &wordFilter{banned: []string{"spam"}},
		notifier:  service.NewNotifier(gw, log),
	}
	deps := service.Deps{
		Gateway:   gw,
		Moderator: f.moderator,
		Notifier:  f.notifier,
		Logger:    log,
	}
	f.communities = service.NewCommunityService(deps)
	f.posts = service.NewPostService(deps)
	f.likes = service.NewPostLikeService(deps)

	f.alice = mysqltest.SeedUser(t, gw, "alice")
	f.bob = mysqltest.SeedUser(t, gw, "bob")
	f.carol = mysqltest.SeedUser(t, gw, "carol")
	f.dave = mysqltest.SeedUser(t, gw, "dave")
	return f
}

// community alice 创建社区，members 依次加入
func (f *fixture) community(t *testing.T, name string, members ...*model.User) *model.Community {
	t.Helper()

	c, err := f.communities.CreateCommunity(f.ctx, f.alice.ID, name, "")
	require.NoError(t, err)
	for _, m := range members {
		require.NoError(t, f.communities.JoinCommunity(f.ctx, m.ID, c.ID))
	}
	return c
}

func (f *fixture) membership(t *testing.T, communityID, userID uint64) *model.CommunityMember {
	t.Helper()

	m, err := mysql.For[model.CommunityMember](f.gw.Begin(f.ctx)).Find(mysql.MembershipOf(communityID, userID))
	require.NoError(t, err)
	return m
}

func (f *fixture) notifications(t *testing.T, userID uint64, notifyType string) []model.Notification {
	t.Helper()

	list, err := mysql.For[model.Notification](f.gw.Begin(f.ctx)).Query(
		mysql.NotificationsFor(userID).And("type = ?", notifyType))
	require.NoError(t, err)
	return list
}
