package service

import (
	"context"
	"time"

	"Lee_Library/internal/metrics"
	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

// Sender 把一条 outbox 记录投递到外部通道
type Sender func(ctx context.Context, ob *model.NotificationOutbox) error

// OutboxRelayer 按 id 顺序消费待投递通知
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
	log       *logrus.Logger
}

type RelayerOption func(*OutboxRelayer)

func WithBatchSize(n int) RelayerOption {
	return func(r *OutboxRelayer) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) RelayerOption {
	return func(r *OutboxRelayer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxRetry 失败次数小于 n 的记录会被重新放回待投递；0 表示不重试
func WithMaxRetry(n int) RelayerOption {
	return func(r *OutboxRelayer) { r.maxRetry = n }
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, sender Sender, log *logrus.Logger, opts ...RelayerOption) *OutboxRelayer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		interval:  time.Second,
		maxRetry:  5,
		sender:    sender,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run outbox启动器，ctx 结束时退出
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功和失败条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) (sent, failed int) {
	if r.maxRetry > 0 {
		if n, err := r.repo.Requeue(ctx, r.maxRetry); err != nil {
			r.log.WithError(err).Warn("outbox requeue")
		} else if n > 0 {
			r.log.WithField("rows", n).Debug("outbox requeued")
		}
	}

	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		r.log.WithError(err).Error("outbox query")
		return 0, 0
	}
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			failed++
			metrics.ObserveDelivery(false)
			r.log.WithError(err).WithFields(logrus.Fields{
				"event": ob.EventID,
				"retry": ob.Retry,
			}).Warn("outbox send failed")
			if err = r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.log.WithError(err).WithField("id", ob.ID).Error("outbox mark failed")
			}
			continue
		}
		sent++
		metrics.ObserveDelivery(true)
		if err = r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.WithError(err).WithField("id", ob.ID).Error("outbox mark sent")
		}
	}
	return sent, failed
}
