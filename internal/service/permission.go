package service

import (
	"context"
	"errors"

	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"
)

// Standing 用户在某个社区里的身份，Owner > Moderator > Member > Outsider
type Standing int

const (
	Outsider Standing = iota
	Member
	Moderator
	Owner
)

var standingNames = [...]string{"outsider", "member", "moderator", "owner"}

func (s Standing) String() string {
	if s < Outsider || s > Owner {
		return "unknown"
	}
	return standingNames[s]
}

func (s Standing) AtLeast(min Standing) bool {
	return s >= min
}

type PermissionResolver struct {
	gw *mysql.Gateway
}

func NewPermissionResolver(gw *mysql.Gateway) *PermissionResolver {
	return &PermissionResolver{gw: gw}
}

// Resolve 社区不存在时返回 Outsider
func (r *PermissionResolver) Resolve(ctx context.Context, communityID, userID uint64) (Standing, error) {
	uow := r.gw.Begin(ctx)
	community, err := mysql.For[model.Community](uow).Get(communityID)
	if errors.Is(err, mysql.ErrNotFound) {
		return Outsider, nil
	}
	if err != nil {
		return Outsider, storeErr("resolve standing", err)
	}
	standing, _, err := standingIn(uow, community, userID)
	return standing, err
}

// standingIn 社区已加载时使用，同时返回成员记录（没有则为 nil）
func standingIn(uow *mysql.UnitOfWork, community *model.Community, userID uint64) (Standing, *model.CommunityMember, error) {
	member, err := mysql.For[model.CommunityMember](uow).Find(mysql.MembershipOf(community.ID, userID))
	if err != nil {
		return Outsider, nil, storeErr("load membership", err)
	}
	switch {
	case community.AdminID == userID:
		return Owner, member, nil
	case member == nil:
		return Outsider, nil, nil
	case member.IsModerator:
		return Moderator, member, nil
	default:
		return Member, member, nil
	}
}
