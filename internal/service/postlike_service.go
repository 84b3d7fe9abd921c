package service

import (
	"context"
	"fmt"
	"time"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/metrics"
	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"
)

type PostLikeService struct {
	Deps
}

func NewPostLikeService(d Deps) *PostLikeService {
	return &PostLikeService{Deps: d.withDefaults()}
}

// LikePost 每个用户对同一帖子最多一个赞；like_count 与点赞记录同一次提交
func (s *PostLikeService) LikePost(ctx context.Context, userID, postID uint64) (err error) {
	defer func() { metrics.ObserveDecision("like_post", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	posts := mysql.For[model.CommunityPost](uow)
	post, err := getOr404(posts, postID, "post")
	if err != nil {
		return err
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	likes := mysql.For[model.PostLike](uow)
	liked, err := likes.Exists(mysql.LikeOf(postID, userID))
	if err != nil {
		return storeErr("check like", err)
	}
	if liked {
		return apperr.Conflict("user has already liked this post")
	}

	if err = likes.Add(&model.PostLike{PostID: postID, UserID: userID}); err != nil {
		return storeErr("like post", err)
	}
	if err = posts.Adjust(postID, "like_count", 1); err != nil {
		return storeErr("bump like count", err)
	}
	if err = commit(uow, "like post"); err != nil {
		return err
	}

	s.invalidate(ctx, postID)
	s.notify(ctx, Event{
		Type:        model.NotifyPostLike,
		ActorID:     userID,
		ActorName:   user.DisplayName(),
		CommunityID: post.CommunityID,
		RecipientID: post.AuthorID,
		RelatedID:   &post.ID,
	})
	return nil
}

func (s *PostLikeService) UnlikePost(ctx context.Context, userID, postID uint64) (err error) {
	defer func() { metrics.ObserveDecision("unlike_post", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	posts := mysql.For[model.CommunityPost](uow)
	post, err := getOr404(posts, postID, "post")
	if err != nil {
		return err
	}
	likes := mysql.For[model.PostLike](uow)
	like, err := likes.Find(mysql.LikeOf(postID, userID))
	if err != nil {
		return storeErr("load like", err)
	}
	if like == nil {
		return apperr.NotFound("user has not liked this post")
	}

	if err = likes.Delete(like); err != nil {
		return storeErr("unlike post", err)
	}
	if err = posts.Adjust(postID, "like_count", -1); err != nil {
		return storeErr("drop like count", err)
	}
	if err = commit(uow, "unlike post"); err != nil {
		return err
	}

	s.invalidate(ctx, postID)
	s.notify(ctx, Event{
		Type:        model.NotifyPostUnlike,
		ActorID:     userID,
		ActorName:   s.displayName(ctx, userID),
		CommunityID: post.CommunityID,
		RecipientID: post.AuthorID,
		RelatedID:   &post.ID,
	})
	return nil
}

// SharePost targetCommunityID 为空表示分享到个人，否则分享者必须是目标社区成员
func (s *PostLikeService) SharePost(ctx context.Context, userID, postID uint64, targetCommunityID *uint64) (share *model.PostShare, err error) {
	defer func() { metrics.ObserveDecision("share_post", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	posts := mysql.For[model.CommunityPost](uow)
	post, err := getOr404(posts, postID, "post")
	if err != nil {
		return nil, err
	}
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if targetCommunityID != nil {
		target, err := getOr404(mysql.For[model.Community](uow), *targetCommunityID, "community")
		if err != nil {
			return nil, err
		}
		standing, _, err := standingIn(uow, target, userID)
		if err != nil {
			return nil, err
		}
		if !standing.AtLeast(Member) {
			return nil, apperr.Forbidden("you must be a member of the community to share posts there")
		}
	}

	share = &model.PostShare{PostID: postID, UserID: userID, SharedWithCommunityID: targetCommunityID}
	if err = mysql.For[model.PostShare](uow).Add(share); err != nil {
		return nil, storeErr("share post", err)
	}
	if err = posts.Adjust(postID, "share_count", 1); err != nil {
		return nil, storeErr("bump share count", err)
	}
	if err = commit(uow, "share post"); err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:        model.NotifyPostShare,
		ActorID:     userID,
		ActorName:   user.DisplayName(),
		CommunityID: post.CommunityID,
		RecipientID: post.AuthorID,
		RelatedID:   &post.ID,
	})
	return share, nil
}

func (s *PostLikeService) IsLiked(ctx context.Context, userID, postID uint64) (bool, error) {
	liked, err := mysql.For[model.PostLike](s.Gateway.Begin(ctx)).Exists(mysql.LikeOf(postID, userID))
	if err != nil {
		return false, storeErr("check like", err)
	}
	return liked, nil
}

// GetLikeCount 先读缓存；未命中时拿锁回源，拿不到锁短暂退避后再读一次缓存
func (s *PostLikeService) GetLikeCount(ctx context.Context, postID uint64) (int64, error) {
	if s.LikeCache == nil {
		return s.loadLikeCount(ctx, postID)
	}
	if v, ok, err := s.LikeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	if s.Lock == nil {
		return s.refill(ctx, postID)
	}

	token := fmt.Sprintf("%d-%d", postID, time.Now().UnixNano())
	got, _ := s.Lock.Acquire(ctx, postID, token)
	if got {
		defer func() {
			if err := s.Lock.Release(ctx, postID, token); err != nil {
				s.Logger.WithError(err).WithField("post", postID).Warn("release like lock")
			}
		}()
		// 第二次检查
		if v, ok, err := s.LikeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
			return v, nil
		}
		return s.refill(ctx, postID)
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	if v, ok, err := s.LikeCache.GetLikeCountCached(ctx, postID); err == nil && ok {
		return v, nil
	}
	return s.loadLikeCount(ctx, postID)
}

func (s *PostLikeService) refill(ctx context.Context, postID uint64) (int64, error) {
	v, err := s.loadLikeCount(ctx, postID)
	if err != nil {
		return 0, err
	}
	_ = s.LikeCache.SetLikeCount(ctx, postID, v)
	return v, nil
}

func (s *PostLikeService) loadLikeCount(ctx context.Context, postID uint64) (int64, error) {
	post, err := getOr404(mysql.For[model.CommunityPost](s.Gateway.Begin(ctx)), postID, "post")
	if err != nil {
		return 0, err
	}
	return post.LikeCount, nil
}

// invalidate 写后删计数 key，延迟二删缩小并发回填脏数据的窗口
func (s *PostLikeService) invalidate(ctx context.Context, postID uint64) {
	if s.LikeCache == nil {
		return
	}
	if err := s.LikeCache.DeleteCount(ctx, postID, 500*time.Millisecond); err != nil {
		s.Logger.WithError(err).WithField("post", postID).Warn("invalidate like count")
	}
}
