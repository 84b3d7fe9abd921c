package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/model"
	"Lee_Library/internal/pkg"
	"Lee_Library/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

// UserDirectory 身份提供方
type UserDirectory interface {
	FindUser(ctx context.Context, id uint64) (*model.User, error)
}

// ContentModerator 外部文本审核
type ContentModerator interface {
	Classify(ctx context.Context, text string) (pkg.Verdict, error)
}

// LikeCache 点赞数缓存，可为空
type LikeCache interface {
	GetLikeCountCached(ctx context.Context, postID uint64) (int64, bool, error)
	SetLikeCount(ctx context.Context, postID uint64, cnt int64) error
	DeleteCount(ctx context.Context, postID uint64, delay ...time.Duration) error
}

// CacheLock 缓存回源时防击穿
type CacheLock interface {
	Acquire(ctx context.Context, postID uint64, token string) (bool, error)
	Release(ctx context.Context, postID uint64, token string) error
}

// Deps 各个 service 共享的依赖
type Deps struct {
	Gateway   *mysql.Gateway
	Users     UserDirectory
	Moderator ContentModerator
	Notifier  *Notifier
	LikeCache LikeCache
	Lock      CacheLock
	Logger    *logrus.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Users == nil {
		d.Users = mysql.NewUserRepository(d.Gateway)
	}
	if d.Moderator == nil {
		d.Moderator = pkg.AllowAll{}
	}
	if d.Notifier == nil {
		d.Notifier = NewNotifier(d.Gateway, d.Logger)
	}
	return d
}

// storeErr 业务错误原样返回，其余视为存储故障
func storeErr(op string, err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal(op, err)
}

// getOr404 按主键加载，不存在时返回 "<what> not found"
func getOr404[T any](repo *mysql.Repository[T], id uint64, what string) (*T, error) {
	entity, err := repo.Get(id)
	if errors.Is(err, mysql.ErrNotFound) {
		return nil, apperr.NotFound(what + " not found")
	}
	if err != nil {
		return nil, storeErr("load "+what, err)
	}
	return entity, nil
}

func commit(uow *mysql.UnitOfWork, op string) error {
	if err := uow.Commit(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (d Deps) requireUser(ctx context.Context, id uint64) (*model.User, error) {
	user, err := d.Users.FindUser(ctx, id)
	if err != nil {
		return nil, storeErr("load user", err)
	}
	return user, nil
}

// displayName 只用于通知文案，查不到不报错
func (d Deps) displayName(ctx context.Context, id uint64) string {
	user, err := d.Users.FindUser(ctx, id)
	if err != nil || user == nil {
		return "A member"
	}
	return user.DisplayName()
}

// screen 审核不通过时给作者发通知并返回 UpstreamRejected
func (d Deps) screen(ctx context.Context, author *model.User, content, rejectedType string) error {
	verdict, err := d.Moderator.Classify(ctx, content)
	if err != nil {
		return apperr.Internal("content moderation", err)
	}
	if verdict.IsAppropriate {
		return nil
	}
	d.notify(ctx, Event{
		Type:        rejectedType,
		ActorID:     author.ID,
		ActorName:   author.DisplayName(),
		RecipientID: author.ID,
	})
	what := "post"
	if rejectedType == model.NotifyCommentRejected {
		what = "comment"
	}
	return apperr.UpstreamRejected("your " + what + " was rejected due to inappropriate content").
		WithDetails(map[string]string{"reason": verdict.ReasonMessage, "category": verdict.Category})
}

// notify 通知失败只记日志，不影响已经提交的主操作
func (d Deps) notify(ctx context.Context, ev Event) {
	if _, err := d.Notifier.Publish(context.WithoutCancel(ctx), ev); err != nil {
		d.Logger.WithError(err).WithFields(logrus.Fields{
			"type":  ev.Type,
			"actor": ev.ActorID,
		}).Warn("notification dropped")
	}
}

func normalizePage(page, size int) (skip, take int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return (page - 1) * size, size
}

func trimContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("content required")
	}
	return content, nil
}
