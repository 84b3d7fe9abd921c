package mysql

import (
	"context"
	"errors"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/model"
)

// UserRepository 身份提供方的只读视图，账号的注册登录不在这里
type UserRepository struct {
	gw *Gateway
}

func NewUserRepository(gw *Gateway) *UserRepository {
	return &UserRepository{gw: gw}
}

func (r *UserRepository) FindUser(ctx context.Context, id uint64) (*model.User, error) {
	user, err := For[model.User](r.gw.Begin(ctx)).Get(id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	return user, err
}
