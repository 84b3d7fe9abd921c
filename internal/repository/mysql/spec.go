package mysql

import (
	"slices"

	"gorm.io/gorm"
)

// Cond 一个 where 片段，占位符用 ?
type Cond struct {
	Query string
	Args  []any
}

// Spec 查询规格：条件、预加载、排序、分页。值类型，组合时不会修改原值
type Spec[T any] struct {
	Criteria []Cond
	Includes []string
	Order    string
	Skip     int
	Take     int
}

func Where[T any](query string, args ...any) Spec[T] {
	return Spec[T]{}.And(query, args...)
}

func (s Spec[T]) And(query string, args ...any) Spec[T] {
	s.Criteria = append(slices.Clip(s.Criteria), Cond{Query: query, Args: args})
	return s
}

// With 预加载关联
func (s Spec[T]) With(assoc ...string) Spec[T] {
	s.Includes = append(slices.Clip(s.Includes), assoc...)
	return s
}

func (s Spec[T]) OrderBy(order string) Spec[T] {
	s.Order = order
	return s
}

func (s Spec[T]) Page(skip, take int) Spec[T] {
	s.Skip = skip
	s.Take = take
	return s
}

func (s Spec[T]) IsPaginated() bool {
	return s.Take > 0
}

func (s Spec[T]) filter(q *gorm.DB) *gorm.DB {
	for _, c := range s.Criteria {
		q = q.Where(c.Query, c.Args...)
	}
	return q
}

func (s Spec[T]) apply(q *gorm.DB) *gorm.DB {
	q = s.filter(q)
	for _, inc := range s.Includes {
		q = q.Preload(inc)
	}
	if s.Order != "" {
		q = q.Order(s.Order)
	}
	if s.IsPaginated() {
		q = q.Offset(s.Skip).Limit(s.Take)
	}
	return q
}
