package model

import "time"

type CommunityPost struct {
	ID           uint64    `gorm:"primaryKey"`
	CommunityID  uint64    `gorm:"not null;index:idx_community_time,priority:1"`
	AuthorID     uint64    `gorm:"not null;index"`
	Author       *User     `gorm:"foreignKey:AuthorID" json:",omitempty"`
	Content      string    `gorm:"type:text;not null"`
	ImageURL     string    `gorm:"size:255"`
	LikeCount    int64     `gorm:"not null;default:0"`
	CommentCount int64     `gorm:"not null;default:0"`
	ShareCount   int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"index:idx_community_time,priority:2,sort:desc"`
}

type PostComment struct {
	ID        uint64 `gorm:"primaryKey"`
	PostID    uint64 `gorm:"not null;index"`
	AuthorID  uint64 `gorm:"not null;index"`
	Author    *User  `gorm:"foreignKey:AuthorID" json:",omitempty"`
	Content   string `gorm:"type:text;not null"`
	ImageURL  string `gorm:"size:255"`
	CreatedAt time.Time
}

type PostLike struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	PostID    uint64 `gorm:"not null;uniqueIndex:uk_post_user"`
	UserID    uint64 `gorm:"not null;index;uniqueIndex:uk_post_user"`
	CreatedAt time.Time
}

func (PostLike) TableName() string {
	return "post_likes"
}

// PostShare 只追加；SharedWithCommunityID 为空表示分享到个人
type PostShare struct {
	ID                    uint64  `gorm:"primaryKey"`
	PostID                uint64  `gorm:"not null;index"`
	UserID                uint64  `gorm:"not null;index"`
	SharedWithCommunityID *uint64 `gorm:"index"`
	CreatedAt             time.Time
}
