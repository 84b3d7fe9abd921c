// Package mysqltest 为测试提供基于 SQLite 文件库的 Gateway，表结构与线上一致
package mysqltest

import (
	"path/filepath"
	"testing"

	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 每个测试一个独立的库文件，测试结束自动关闭
func Open(t *testing.T) *mysql.Gateway {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
	cfg := mysql.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return mysql.NewGateway(db)
}

// SeedUser 写入一个用户
func SeedUser(t *testing.T, gw *mysql.Gateway, username string) *model.User {
	t.Helper()

	user := &model.User{
		Username:  username,
		FirstName: username,
		Email:     username + "@test.com",
	}
	require.NoError(t, gw.DB().Create(user).Error)
	return user
}
