package service

import (
	"context"
	"strings"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/metrics"
	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

type CommunityService struct {
	Deps
}

func NewCommunityService(d Deps) *CommunityService {
	return &CommunityService{Deps: d.withDefaults()}
}

// CommunityView 社区详情，附带成员数和调用者身份
type CommunityView struct {
	model.Community
	MemberCount int64  `json:"member_count"`
	Standing    string `json:"standing"`
}

// CreateCommunity 创建者自动成为社区成员并拥有版主标记，两条记录同一次提交
func (s *CommunityService) CreateCommunity(ctx context.Context, ownerID uint64, name, desc string) (c *model.Community, err error) {
	defer func() { metrics.ObserveDecision("create_community", err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("community name required")
	}
	if _, err = s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	communities := mysql.For[model.Community](uow)
	taken, err := communities.Exists(mysql.CommunityByName(name))
	if err != nil {
		return nil, storeErr("check community name", err)
	}
	if taken {
		return nil, apperr.Conflict("community name already taken")
	}

	c = &model.Community{Name: name, Description: desc, AdminID: ownerID}
	if err = communities.Add(c); err != nil {
		return nil, storeErr("create community", err)
	}
	owner := &model.CommunityMember{CommunityID: c.ID, UserID: ownerID, IsModerator: true}
	if err = mysql.For[model.CommunityMember](uow).Add(owner); err != nil {
		return nil, storeErr("add owner membership", err)
	}
	if err = commit(uow, "create community"); err != nil {
		return nil, err
	}

	s.Logger.WithFields(logrus.Fields{"community": c.ID, "owner": ownerID}).Info("community created")
	return c, nil
}

func (s *CommunityService) JoinCommunity(ctx context.Context, userID, communityID uint64) (err error) {
	defer func() { metrics.ObserveDecision("join_community", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return err
	}
	if _, err = s.requireUser(ctx, userID); err != nil {
		return err
	}
	standing, _, err := standingIn(uow, community, userID)
	if err != nil {
		return err
	}
	if standing != Outsider {
		return apperr.Conflict("user is already a member of this community")
	}

	if err = mysql.For[model.CommunityMember](uow).Add(&model.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
	}); err != nil {
		return storeErr("join community", err)
	}
	return commit(uow, "join community")
}

// LeaveCommunity 社区所有权不能转移，所以所有者不能退出
func (s *CommunityService) LeaveCommunity(ctx context.Context, userID, communityID uint64) (err error) {
	defer func() { metrics.ObserveDecision("leave_community", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return err
	}
	standing, member, err := standingIn(uow, community, userID)
	if err != nil {
		return err
	}
	switch standing {
	case Owner:
		return apperr.InvalidState("community owner cannot leave the community")
	case Outsider:
		return apperr.NotFound("user is not a member of this community")
	}

	if err = mysql.For[model.CommunityMember](uow).Delete(member); err != nil {
		return storeErr("leave community", err)
	}
	return commit(uow, "leave community")
}

func (s *CommunityService) GetCommunity(ctx context.Context, viewerID, communityID uint64) (*CommunityView, error) {
	uow := s.Gateway.Begin(ctx)
	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return nil, err
	}
	count, err := mysql.For[model.CommunityMember](uow).Count(mysql.MembersOf(communityID))
	if err != nil {
		return nil, storeErr("count members", err)
	}
	standing, _, err := standingIn(uow, community, viewerID)
	if err != nil {
		return nil, err
	}
	return &CommunityView{Community: *community, MemberCount: count, Standing: standing.String()}, nil
}

func (s *CommunityService) ListCommunities(ctx context.Context, page, size int) ([]model.Community, error) {
	skip, take := normalizePage(page, size)
	spec := mysql.Spec[model.Community]{}.OrderBy("id DESC").Page(skip, take)
	list, err := mysql.For[model.Community](s.Gateway.Begin(ctx)).Query(spec)
	if err != nil {
		return nil, storeErr("list communities", err)
	}
	return list, nil
}

func (s *CommunityService) ListMembers(ctx context.Context, communityID uint64) ([]model.CommunityMember, error) {
	uow := s.Gateway.Begin(ctx)
	if _, err := getOr404(mysql.For[model.Community](uow), communityID, "community"); err != nil {
		return nil, err
	}
	members, err := mysql.For[model.CommunityMember](uow).Query(mysql.MembersOf(communityID))
	if err != nil {
		return nil, storeErr("list members", err)
	}
	return members, nil
}

// AssignModerator 只有所有者可以任命版主，目标必须已是成员
func (s *CommunityService) AssignModerator(ctx context.Context, requesterID, communityID, targetID uint64) (err error) {
	defer func() { metrics.ObserveDecision("assign_moderator", err) }()

	member, err := s.setModerator(ctx, requesterID, communityID, targetID, true)
	if err != nil {
		return err
	}
	s.notify(ctx, Event{
		Type:        model.NotifyModeratorAssigned,
		ActorID:     requesterID,
		ActorName:   s.displayName(ctx, requesterID),
		CommunityID: communityID,
		RecipientID: member.UserID,
		TargetName:  s.displayName(ctx, member.UserID),
		RelatedID:   &communityID,
	})
	return nil
}

func (s *CommunityService) RemoveModerator(ctx context.Context, requesterID, communityID, targetID uint64) (err error) {
	defer func() { metrics.ObserveDecision("remove_moderator", err) }()

	member, err := s.setModerator(ctx, requesterID, communityID, targetID, false)
	if err != nil {
		return err
	}
	s.notify(ctx, Event{
		Type:        model.NotifyModeratorRemoved,
		ActorID:     requesterID,
		ActorName:   s.displayName(ctx, requesterID),
		CommunityID: communityID,
		RecipientID: member.UserID,
		TargetName:  s.displayName(ctx, member.UserID),
		RelatedID:   &communityID,
	})
	return nil
}

func (s *CommunityService) setModerator(ctx context.Context, requesterID, communityID, targetID uint64, on bool) (*model.CommunityMember, error) {
	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return nil, err
	}
	if community.AdminID != requesterID {
		return nil, apperr.Forbidden("only the community owner can manage moderators")
	}

	members := mysql.For[model.CommunityMember](uow)
	member, err := members.Find(mysql.MembershipOf(communityID, targetID))
	if err != nil {
		return nil, storeErr("load membership", err)
	}
	if member == nil {
		return nil, apperr.NotFound("user is not a member of this community")
	}
	switch {
	case on && member.IsModerator:
		return nil, apperr.Conflict("user is already a moderator")
	case !on && targetID == community.AdminID:
		return nil, apperr.InvalidState("cannot remove the owner's moderator role")
	case !on && !member.IsModerator:
		return nil, apperr.InvalidState("user is not a moderator")
	}

	member.IsModerator = on
	if err = members.Update(member); err != nil {
		return nil, storeErr("update membership", err)
	}
	if err = commit(uow, "update membership"); err != nil {
		return nil, err
	}
	return member, nil
}

// BanUser 移除目标的成员资格；目标本来就不是成员时返回 false
func (s *CommunityService) BanUser(ctx context.Context, requesterID, communityID, targetID uint64) (removed bool, err error) {
	defer func() { metrics.ObserveDecision("ban_user", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return false, err
	}
	standing, _, err := standingIn(uow, community, requesterID)
	if err != nil {
		return false, err
	}
	if !standing.AtLeast(Moderator) {
		return false, apperr.Forbidden("only owners and moderators can ban users")
	}
	if targetID == community.AdminID {
		return false, apperr.InvalidState("cannot ban the community owner")
	}

	_, target, err := standingIn(uow, community, targetID)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}
	if target.IsModerator && standing != Owner {
		return false, apperr.Forbidden("only the community owner can ban moderators")
	}

	if err = mysql.For[model.CommunityMember](uow).Delete(target); err != nil {
		return false, storeErr("ban user", err)
	}
	if err = commit(uow, "ban user"); err != nil {
		return false, err
	}
	s.Logger.WithFields(logrus.Fields{
		"community": communityID,
		"target":    targetID,
		"by":        requesterID,
	}).Info("user banned")
	return true, nil
}

// UnbanUser 重新加入为普通成员；已经是成员时返回 false
func (s *CommunityService) UnbanUser(ctx context.Context, requesterID, communityID, targetID uint64) (added bool, err error) {
	defer func() { metrics.ObserveDecision("unban_user", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return false, err
	}
	standing, _, err := standingIn(uow, community, requesterID)
	if err != nil {
		return false, err
	}
	if !standing.AtLeast(Moderator) {
		return false, apperr.Forbidden("only owners and moderators can unban users")
	}
	if _, err = s.requireUser(ctx, targetID); err != nil {
		return false, err
	}
	current, _, err := standingIn(uow, community, targetID)
	if err != nil {
		return false, err
	}
	if current != Outsider {
		return false, nil
	}

	if err = mysql.For[model.CommunityMember](uow).Add(&model.CommunityMember{
		CommunityID: communityID,
		UserID:      targetID,
	}); err != nil {
		return false, storeErr("unban user", err)
	}
	if err = commit(uow, "unban user"); err != nil {
		return false, err
	}
	return true, nil
}
