package model

import "time"

// Notification types
const (
	NotifyPostLike          = "PostLike"
	NotifyPostUnlike        = "PostUnlike"
	NotifyPostComment       = "PostComment"
	NotifyPostShare         = "PostShare"
	NotifyPostCreated       = "PostCreated"
	NotifyPostAccepted      = "PostAccepted"
	NotifyPostRejected      = "PostRejected"
	NotifyCommentRejected   = "CommentRejected"
	NotifyModeratorAssigned = "ModeratorAssigned"
	NotifyModeratorRemoved  = "ModeratorRemoved"
)

// Notification 写入后只读，除 IsRead 外不再修改
type Notification struct {
	ID              uint64 `gorm:"primaryKey"`
	UserID          uint64 `gorm:"not null;index:idx_user_time,priority:1"`
	ActorID         uint64 `gorm:"not null"`
	ActorName       string `gorm:"size:128"`
	Type            string `gorm:"size:32;not null"`
	Message         string `gorm:"size:512"`
	RelatedEntityID *uint64
	IsRead          bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"index:idx_user_time,priority:2,sort:desc"`
}

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// NotificationOutbox 待投递的通知队列，按 id 顺序由 relayer 消费
type NotificationOutbox struct {
	ID             uint64 `gorm:"primaryKey"`
	EventID        string `gorm:"size:36;uniqueIndex;not null"`
	NotificationID uint64 `gorm:"not null;index"`
	Recipient      uint64 `gorm:"not null"`
	EventType      string `gorm:"size:32;not null"`
	Payload        string `gorm:"type:text;not null"`
	Status         int8   `gorm:"not null;default:0;index"`
	Retry          int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }
