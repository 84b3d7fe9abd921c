package mysql

import (
	"context"
	"errors"
	"fmt"

	apperr "Lee_Library/internal/errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = gorm.ErrRecordNotFound

// Gateway 持有连接池，每个业务操作通过 Begin 拿到自己的 UnitOfWork
type Gateway struct {
	db *gorm.DB
}

func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

func (g *Gateway) DB() *gorm.DB {
	return g.db
}

// Begin 开启一个工作单元。事务在第一次写入时才真正开启
func (g *Gateway) Begin(ctx context.Context) *UnitOfWork {
	return &UnitOfWork{db: g.db.WithContext(ctx)}
}

// UnitOfWork 一次逻辑操作的提交边界：所有 Repository 的写入都进同一个事务，Commit 一次性落库。
// 不可跨 goroutine 共享。
type UnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// reader 有未提交写入时走事务，保证读到自己的写
func (u *UnitOfWork) reader() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWork) writer() (*gorm.DB, error) {
	if u.tx == nil {
		tx := u.db.Begin()
		if tx.Error != nil {
			return nil, fmt.Errorf("begin transaction: %w", tx.Error)
		}
		u.tx = tx
	}
	return u.tx, nil
}

// Pending 是否有尚未提交的写入
func (u *UnitOfWork) Pending() bool {
	return u.tx != nil
}

// Commit 提交自上次 Commit 以来的所有写入；之后再写会开启新事务
func (u *UnitOfWork) Commit() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	if err := tx.Commit().Error; err != nil {
		return translate(err)
	}
	return nil
}

// Rollback 丢弃未提交的写入，可以 defer，提交后调用无副作用
func (u *UnitOfWork) Rollback() {
	if u.tx == nil {
		return
	}
	u.tx.Rollback()
	u.tx = nil
}

// translate 唯一约束冲突转成 Conflict，其余原样返回
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("duplicate record").WithCause(err)
	}
	return err
}
