package service

import (
	"context"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/metrics"
	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

type PostService struct {
	Deps
}

func NewPostService(d Deps) *PostService {
	return &PostService{Deps: d.withDefaults()}
}

// PostView 列表项，IsLiked 针对当前查看者
type PostView struct {
	model.CommunityPost
	IsLiked bool `json:"is_liked"`
}

// CreatePost 成员才能发帖；审核不通过时只通知作者，不落帖子
func (s *PostService) CreatePost(ctx context.Context, userID, communityID uint64, content, imageURL string) (post *model.CommunityPost, err error) {
	defer func() { metrics.ObserveDecision("create_post", err) }()

	if content, err = trimContent(content); err != nil {
		return nil, err
	}

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	community, err := getOr404(mysql.For[model.Community](uow), communityID, "community")
	if err != nil {
		return nil, err
	}
	author, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	standing, _, err := standingIn(uow, community, userID)
	if err != nil {
		return nil, err
	}
	if !standing.AtLeast(Member) {
		return nil, apperr.Forbidden("only community members can create posts")
	}
	if err = s.screen(ctx, author, content, model.NotifyPostRejected); err != nil {
		return nil, err
	}

	post = &model.CommunityPost{
		CommunityID: communityID,
		AuthorID:    userID,
		Content:     content,
		ImageURL:    imageURL,
	}
	if err = mysql.For[model.CommunityPost](uow).Add(post); err != nil {
		return nil, storeErr("create post", err)
	}
	if err = mysql.For[model.Community](uow).Adjust(communityID, "post_count", 1); err != nil {
		return nil, storeErr("bump post count", err)
	}
	if err = commit(uow, "create post"); err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:        model.NotifyPostCreated,
		ActorID:     userID,
		ActorName:   author.DisplayName(),
		CommunityID: communityID,
		RecipientID: userID,
		TargetName:  community.Name,
		RelatedID:   &post.ID,
	})
	post.Author = author
	return post, nil
}

// AddComment 评论者必须是帖子所在社区的成员
func (s *PostService) AddComment(ctx context.Context, userID, postID uint64, content, imageURL string) (comment *model.PostComment, err error) {
	defer func() { metrics.ObserveDecision("add_comment", err) }()

	if content, err = trimContent(content); err != nil {
		return nil, err
	}

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	post, err := getOr404(mysql.For[model.CommunityPost](uow), postID, "post")
	if err != nil {
		return nil, err
	}
	author, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	community, err := getOr404(mysql.For[model.Community](uow), post.CommunityID, "community")
	if err != nil {
		return nil, err
	}
	standing, _, err := standingIn(uow, community, userID)
	if err != nil {
		return nil, err
	}
	if !standing.AtLeast(Member) {
		return nil, apperr.Forbidden("only community members can comment on posts")
	}
	if err = s.screen(ctx, author, content, model.NotifyCommentRejected); err != nil {
		return nil, err
	}

	comment = &model.PostComment{
		PostID:   postID,
		AuthorID: userID,
		Content:  content,
		ImageURL: imageURL,
	}
	if err = mysql.For[model.PostComment](uow).Add(comment); err != nil {
		return nil, storeErr("add comment", err)
	}
	if err = mysql.For[model.CommunityPost](uow).Adjust(postID, "comment_count", 1); err != nil {
		return nil, storeErr("bump comment count", err)
	}
	if err = commit(uow, "add comment"); err != nil {
		return nil, err
	}

	s.notify(ctx, Event{
		Type:        model.NotifyPostComment,
		ActorID:     userID,
		ActorName:   author.DisplayName(),
		CommunityID: post.CommunityID,
		RecipientID: post.AuthorID,
		RelatedID:   &post.ID,
	})
	comment.Author = author
	return comment, nil
}

// DeletePost 作者本人或社区版主以上可删；评论和点赞一并删除
func (s *PostService) DeletePost(ctx context.Context, requesterID, postID uint64) (err error) {
	defer func() { metrics.ObserveDecision("delete_post", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	posts := mysql.For[model.CommunityPost](uow)
	post, err := getOr404(posts, postID, "post")
	if err != nil {
		return err
	}
	community, err := getOr404(mysql.For[model.Community](uow), post.CommunityID, "community")
	if err != nil {
		return err
	}
	standing, _, err := standingIn(uow, community, requesterID)
	if err != nil {
		return err
	}
	if post.AuthorID != requesterID && !standing.AtLeast(Moderator) {
		return apperr.Forbidden("you don't have permission to delete this post")
	}

	if _, err = mysql.For[model.PostComment](uow).DeleteWhere(mysql.Where[model.PostComment]("post_id = ?", postID)); err != nil {
		return storeErr("delete comments", err)
	}
	if _, err = mysql.For[model.PostLike](uow).DeleteWhere(mysql.Where[model.PostLike]("post_id = ?", postID)); err != nil {
		return storeErr("delete likes", err)
	}
	if err = posts.Delete(post); err != nil {
		return storeErr("delete post", err)
	}
	if err = mysql.For[model.Community](uow).Adjust(community.ID, "post_count", -1); err != nil {
		return storeErr("drop post count", err)
	}
	if err = commit(uow, "delete post"); err != nil {
		return err
	}

	if s.LikeCache != nil {
		_ = s.LikeCache.DeleteCount(ctx, postID)
	}
	s.Logger.WithFields(logrus.Fields{"post": postID, "by": requesterID}).Info("post deleted")
	return nil
}

// DeleteComment 评论作者、帖子作者或社区版主以上可删
func (s *PostService) DeleteComment(ctx context.Context, requesterID, commentID uint64) (err error) {
	defer func() { metrics.ObserveDecision("delete_comment", err) }()

	uow := s.Gateway.Begin(ctx)
	defer uow.Rollback()

	comments := mysql.For[model.PostComment](uow)
	comment, err := getOr404(comments, commentID, "comment")
	if err != nil {
		return err
	}
	posts := mysql.For[model.CommunityPost](uow)
	post, err := getOr404(posts, comment.PostID, "post")
	if err != nil {
		return err
	}
	community, err := getOr404(mysql.For[model.Community](uow), post.CommunityID, "community")
	if err != nil {
		return err
	}
	standing, _, err := standingIn(uow, community, requesterID)
	if err != nil {
		return err
	}
	if comment.AuthorID != requesterID && post.AuthorID != requesterID && !standing.AtLeast(Moderator) {
		return apperr.Forbidden("you don't have permission to delete this comment")
	}

	if err = comments.Delete(comment); err != nil {
		return storeErr("delete comment", err)
	}
	if err = posts.Adjust(post.ID, "comment_count", -1); err != nil {
		return storeErr("drop comment count", err)
	}
	return commit(uow, "delete comment")
}

func (s *PostService) GetPost(ctx context.Context, viewerID, postID uint64) (*PostView, error) {
	uow := s.Gateway.Begin(ctx)
	post, err := mysql.For[model.CommunityPost](uow).First(
		mysql.Where[model.CommunityPost]("id = ?", postID).With("Author"))
	if err != nil {
		if apperr.Is(err, mysql.ErrNotFound) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, storeErr("load post", err)
	}
	views, err := s.withLikes(uow, viewerID, []model.CommunityPost{*post})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListCommunityPosts 社区帖子，新的在前
func (s *PostService) ListCommunityPosts(ctx context.Context, viewerID, communityID uint64, page, size int) ([]PostView, error) {
	uow := s.Gateway.Begin(ctx)
	if _, err := getOr404(mysql.For[model.Community](uow), communityID, "community"); err != nil {
		return nil, err
	}
	skip, take := normalizePage(page, size)
	posts, err := mysql.For[model.CommunityPost](uow).Query(mysql.PostsOf(communityID).Page(skip, take))
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return s.withLikes(uow, viewerID, posts)
}

// ListAllPosts 全站动态
func (s *PostService) ListAllPosts(ctx context.Context, viewerID uint64, page, size int) ([]PostView, error) {
	uow := s.Gateway.Begin(ctx)
	skip, take := normalizePage(page, size)
	spec := mysql.Spec[model.CommunityPost]{}.With("Author").OrderBy("created_at DESC, id DESC").Page(skip, take)
	posts, err := mysql.For[model.CommunityPost](uow).Query(spec)
	if err != nil {
		return nil, storeErr("list posts", err)
	}
	return s.withLikes(uow, viewerID, posts)
}

func (s *PostService) ListPostComments(ctx context.Context, postID uint64) ([]model.PostComment, error) {
	uow := s.Gateway.Begin(ctx)
	if _, err := getOr404(mysql.For[model.CommunityPost](uow), postID, "post"); err != nil {
		return nil, err
	}
	comments, err := mysql.For[model.PostComment](uow).Query(mysql.CommentsOf(postID))
	if err != nil {
		return nil, storeErr("list comments", err)
	}
	return comments, nil
}

func (s *PostService) withLikes(uow *mysql.UnitOfWork, viewerID uint64, posts []model.CommunityPost) ([]PostView, error) {
	views := make([]PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	ids := make([]uint64, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		views[i].CommunityPost = posts[i]
	}
	likes, err := mysql.For[model.PostLike](uow).Query(mysql.LikedAmong(viewerID, ids))
	if err != nil {
		return nil, storeErr("load likes", err)
	}
	liked := make(map[uint64]struct{}, len(likes))
	for _, l := range likes {
		liked[l.PostID] = struct{}{}
	}
	for i := range views {
		_, views[i].IsLiked = liked[views[i].ID]
	}
	return views, nil
}
