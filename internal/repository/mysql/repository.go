package mysql

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 所有实体共用的一份 CRUD + 规格查询实现，绑定在某个 UnitOfWork 上
type Repository[T any] struct {
	uow *UnitOfWork
}

func For[T any](uow *UnitOfWork) *Repository[T] {
	return &Repository[T]{uow: uow}
}

// Get 按主键查询，不存在返回 ErrNotFound
func (r *Repository[T]) Get(id uint64) (*T, error) {
	var entity T
	if err := r.uow.reader().First(&entity, id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *Repository[T]) GetAll() ([]T, error) {
	var list []T
	err := r.uow.reader().Find(&list).Error
	return list, err
}

func (r *Repository[T]) Query(spec Spec[T]) ([]T, error) {
	var list []T
	err := spec.apply(r.uow.reader().Model(new(T))).Find(&list).Error
	return list, err
}

// First 规格查询的第一条，不存在返回 ErrNotFound
func (r *Repository[T]) First(spec Spec[T]) (*T, error) {
	var entity T
	if err := spec.Page(0, 1).apply(r.uow.reader().Model(new(T))).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// Find 同 First，但不存在时返回 nil, nil
func (r *Repository[T]) Find(spec Spec[T]) (*T, error) {
	entity, err := r.First(spec)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return entity, err
}

// Count 只应用条件，忽略预加载和分页
func (r *Repository[T]) Count(spec Spec[T]) (int64, error) {
	var n int64
	err := spec.filter(r.uow.reader().Model(new(T))).Count(&n).Error
	return n, err
}

func (r *Repository[T]) Exists(spec Spec[T]) (bool, error) {
	n, err := r.Count(spec)
	return n > 0, err
}

func (r *Repository[T]) Add(entity *T) error {
	w, err := r.uow.writer()
	if err != nil {
		return err
	}
	return translate(w.Omit(clause.Associations).Create(entity).Error)
}

func (r *Repository[T]) Update(entity *T) error {
	w, err := r.uow.writer()
	if err != nil {
		return err
	}
	return translate(w.Omit(clause.Associations).Save(entity).Error)
}

func (r *Repository[T]) Delete(entity *T) error {
	w, err := r.uow.writer()
	if err != nil {
		return err
	}
	return w.Delete(entity).Error
}

// DeleteWhere 按规格批量删除，返回删除行数。没有条件时 gorm 会拒绝执行
func (r *Repository[T]) DeleteWhere(spec Spec[T]) (int64, error) {
	w, err := r.uow.writer()
	if err != nil {
		return 0, err
	}
	res := spec.filter(w).Delete(new(T))
	return res.RowsAffected, res.Error
}

// Adjust 计数列原子加减，结果不小于 0。column 只能来自代码常量
func (r *Repository[T]) Adjust(id uint64, column string, delta int64) error {
	w, err := r.uow.writer()
	if err != nil {
		return err
	}
	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
	return w.Model(new(T)).Where("id = ?", id).UpdateColumn(column, expr).Error
}

// Recount 用子查询结果覆盖计数列，统计和写入在同一条语句里完成
func (r *Repository[T]) Recount(id uint64, column string, count *gorm.DB) error {
	w, err := r.uow.writer()
	if err != nil {
		return err
	}
	return w.Model(new(T)).Where("id = ?", id).UpdateColumn(column, count).Error
}

// CountQuery 构造 SELECT COUNT(*) 子查询，只用于 Recount，不会单独执行
func CountQuery[C any](uow *UnitOfWork, spec Spec[C]) *gorm.DB {
	return spec.filter(uow.db.Model(new(C))).Select("COUNT(*)")
}
