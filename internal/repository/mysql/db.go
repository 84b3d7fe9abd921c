package mysql

import (
	"fmt"

	"Lee_Library/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Config 所有 dialector 共用的 gorm 配置；关系靠查询解析，不建外键
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

// InitDB 打开 MySQL 连接
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

// AutoMigrate 自动建表（开发阶段 OK）
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Community{},
		&model.CommunityMember{},
		&model.CommunityPost{},
		&model.PostComment{},
		&model.PostLike{},
		&model.PostShare{},
		&model.Notification{},
		&model.NotificationOutbox{},
	)
}
