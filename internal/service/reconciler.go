package service

import (
	"context"
	"time"

	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

// CountReconciler 定时用明细表校准帖子和社区上的计数列
type CountReconciler struct {
	gw        *mysql.Gateway
	batchSize int
	interval  time.Duration
	log       *logrus.Logger
}

func NewCountReconciler(gw *mysql.Gateway, log *logrus.Logger) *CountReconciler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CountReconciler{
		gw:        gw,
		batchSize: 500,             // 设置一次对账的大小
		interval:  5 * time.Minute, // 对账的间隔时间
		log:       log,
	}
}

// Run 对账定时任务启动器
func (r *CountReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.ReconcileOnce(ctx); err != nil {
				r.log.WithError(err).Warn("reconcile counters")
			}
		}
	}
}

// ReconcileOnce 全量对账一次，返回修正的行数
func (r *CountReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	fixedPosts, err := r.reconcilePosts(ctx)
	if err != nil {
		return fixedPosts, err
	}
	fixedCommunities, err := r.reconcileCommunities(ctx)
	return fixedPosts + fixedCommunities, err
}

func (r *CountReconciler) reconcilePosts(ctx context.Context) (int, error) {
	fixed := 0
	var lastID uint64
	for {
		n, next, err := r.postBatch(ctx, lastID)
		fixed += n
		if err != nil || next == 0 {
			return fixed, err
		}
		lastID = next
	}
}

// postBatch 校准 id 大于 after 的一批帖子，返回本批最后一个 id，没有更多数据时为 0
func (r *CountReconciler) postBatch(ctx context.Context, after uint64) (int, uint64, error) {
	uow := r.gw.Begin(ctx)
	defer uow.Rollback()

	batch, err := mysql.For[model.CommunityPost](uow).Query(
		mysql.Where[model.CommunityPost]("id > ?", after).OrderBy("id ASC").Page(0, r.batchSize))
	if err != nil {
		return 0, 0, storeErr("list posts", err)
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}
	fixed := 0
	for i := range batch {
		p := &batch[i]
		likes, err := recountPost[model.PostLike](uow, p.ID, "like_count", p.LikeCount)
		if err != nil {
			return fixed, 0, err
		}
		comments, err := recountPost[model.PostComment](uow, p.ID, "comment_count", p.CommentCount)
		if err != nil {
			return fixed, 0, err
		}
		shares, err := recountPost[model.PostShare](uow, p.ID, "share_count", p.ShareCount)
		if err != nil {
			return fixed, 0, err
		}
		if likes || comments || shares {
			fixed++
		}
	}
	if err = commit(uow, "reconcile posts"); err != nil {
		return fixed, 0, err
	}
	return fixed, batch[len(batch)-1].ID, nil
}

// recountPost 明细数和 stored 不一致时用 COUNT 子查询覆盖计数列。
// stored 可能已经过期，所以不按差值修正
func recountPost[C any](uow *mysql.UnitOfWork, postID uint64, column string, stored int64) (bool, error) {
	spec := mysql.Where[C]("post_id = ?", postID)
	actual, err := mysql.For[C](uow).Count(spec)
	if err != nil {
		return false, storeErr("count "+column, err)
	}
	if actual == stored {
		return false, nil
	}
	if err = mysql.For[model.CommunityPost](uow).Recount(postID, column, mysql.CountQuery(uow, spec)); err != nil {
		return false, storeErr("fix "+column, err)
	}
	return true, nil
}

func (r *CountReconciler) reconcileCommunities(ctx context.Context) (int, error) {
	fixed := 0
	var lastID uint64
	for {
		n, next, err := r.communityBatch(ctx, lastID)
		fixed += n
		if err != nil || next == 0 {
			return fixed, err
		}
		lastID = next
	}
}

func (r *CountReconciler) communityBatch(ctx context.Context, after uint64) (int, uint64, error) {
	uow := r.gw.Begin(ctx)
	defer uow.Rollback()

	communities := mysql.For[model.Community](uow)
	batch, err := communities.Query(
		mysql.Where[model.Community]("id > ?", after).OrderBy("id ASC").Page(0, r.batchSize))
	if err != nil {
		return 0, 0, storeErr("list communities", err)
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}
	fixed := 0
	for _, c := range batch {
		spec := mysql.Where[model.CommunityPost]("community_id = ?", c.ID)
		actual, err := mysql.For[model.CommunityPost](uow).Count(spec)
		if err != nil {
			return fixed, 0, storeErr("count posts", err)
		}
		if actual == c.PostCount {
			continue
		}
		if err = communities.Recount(c.ID, "post_count", mysql.CountQuery(uow, spec)); err != nil {
			return fixed, 0, storeErr("fix post_count", err)
		}
		fixed++
	}
	if err = commit(uow, "reconcile communities"); err != nil {
		return fixed, 0, err
	}
	return fixed, batch[len(batch)-1].ID, nil
}
