package mysql

import "Lee_Library/internal/model"

// 常用查询规格

func CommunityByName(name string) Spec[model.Community] {
	return Where[model.Community]("name = ?", name)
}

func MembershipOf(communityID, userID uint64) Spec[model.CommunityMember] {
	return Where[model.CommunityMember]("community_id = ? AND user_id = ?", communityID, userID)
}

// MembersOf 按加入时间排序
func MembersOf(communityID uint64) Spec[model.CommunityMember] {
	return Where[model.CommunityMember]("community_id = ?", communityID).OrderBy("joined_at ASC, id ASC")
}

// PostsOf 社区帖子，新的在前
func PostsOf(communityID uint64) Spec[model.CommunityPost] {
	return Where[model.CommunityPost]("community_id = ?", communityID).
		With("Author").
		OrderBy("created_at DESC, id DESC")
}

// CommentsOf 帖子评论，旧的在前
func CommentsOf(postID uint64) Spec[model.PostComment] {
	return Where[model.PostComment]("post_id = ?", postID).
		With("Author").
		OrderBy("created_at ASC, id ASC")
}

func LikeOf(postID, userID uint64) Spec[model.PostLike] {
	return Where[model.PostLike]("post_id = ? AND user_id = ?", postID, userID)
}

// LikedAmong userID 在 postIDs 里点过赞的记录
func LikedAmong(userID uint64, postIDs []uint64) Spec[model.PostLike] {
	return Where[model.PostLike]("user_id = ? AND post_id IN ?", userID, postIDs)
}

func NotificationsFor(userID uint64) Spec[model.Notification] {
	return Where[model.Notification]("user_id = ?", userID).OrderBy("created_at DESC, id DESC")
}
