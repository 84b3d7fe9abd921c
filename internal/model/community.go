package model

import "time"

type Community struct {
	ID          uint64 `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;size:64;not null"`
	Description string `gorm:"type:text"`
	AdminID     uint64 `gorm:"not null;index"`
	PostCount   int64  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CommunityMember 成员关系；社区创建者同样有一行，IsModerator=true
type CommunityMember struct {
	ID          uint64    `gorm:"primaryKey"`
	CommunityID uint64    `gorm:"not null;index;uniqueIndex:uk_community_user"`
	UserID      uint64    `gorm:"not null;index;uniqueIndex:uk_community_user"`
	IsModerator bool      `gorm:"not null;default:false"`
	JoinedAt    time.Time `gorm:"autoCreateTime"`
}
