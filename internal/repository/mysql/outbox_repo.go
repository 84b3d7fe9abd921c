package mysql

import (
	"context"

	"Lee_Library/internal/model"
)

type OutboxRepository struct {
	gw *Gateway
}

func NewOutboxRepository(gw *Gateway) *OutboxRepository {
	return &OutboxRepository{gw: gw}
}

// List 按 id 顺序取待投递记录
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.NotificationOutbox, error) {
	spec := Where[model.NotificationOutbox]("status = ?", model.OutboxPending).
		OrderBy("id ASC").
		Page(0, batchSize)
	return For[model.NotificationOutbox](r.gw.Begin(ctx)).Query(spec)
}

// RetryUpdate 投递失败：标记失败并累加重试次数
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	uow := r.gw.Begin(ctx)
	defer uow.Rollback()
	repo := For[model.NotificationOutbox](uow)
	if err := repo.Adjust(id, "retry", 1); err != nil {
		return err
	}
	if _, err := r.setStatus(uow, id, model.OutboxFailed); err != nil {
		return err
	}
	return uow.Commit()
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	uow := r.gw.Begin(ctx)
	defer uow.Rollback()
	if _, err := r.setStatus(uow, id, model.OutboxSent); err != nil {
		return err
	}
	return uow.Commit()
}

// Requeue 把失败且重试次数未超限的记录放回待投递
func (r *OutboxRepository) Requeue(ctx context.Context, maxRetry int) (int64, error) {
	uow := r.gw.Begin(ctx)
	defer uow.Rollback()
	w, err := uow.writer()
	if err != nil {
		return 0, err
	}
	res := w.Model(&model.NotificationOutbox{}).
		Where("status = ? AND retry < ?", model.OutboxFailed, maxRetry).
		Update("status", model.OutboxPending)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, uow.Commit()
}

func (r *OutboxRepository) setStatus(uow *UnitOfWork, id uint64, status int8) (int64, error) {
	w, err := uow.writer()
	if err != nil {
		return 0, err
	}
	res := w.Model(&model.NotificationOutbox{}).Where("id = ?", id).Update("status", status)
	return res.RowsAffected, res.Error
}
