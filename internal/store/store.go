// Package store はクライアント側のエンティティ状態を管理します。
// 各操作は pending / fulfilled / rejected の順に状態を遷移させます。
package store

import (
	"context"
	"sync"

	"task-manager/internal/models"
)

// Resource は Slice が利用するAPIです。client.TaskResource / client.TagResource が満たします。
type Resource[T any] interface {
	List(ctx context.Context, p models.Pageable) (*models.Page[T], error)
	Get(ctx context.Context, id int) (*T, error)
	Create(ctx context.Context, e *T) (*T, error)
	Update(ctx context.Context, e *T) (*T, error)
	Patch(ctx context.Context, e *T) (*T, error)
	Delete(ctx context.Context, id int) error
}

// EntityState は1種類のエンティティについての画面状態です。
type EntityState[T any] struct {
	Loading       bool
	ErrorMessage  string
	Entities      []T
	Entity        T
	Updating      bool
	UpdateSuccess bool
	TotalItems    int64
}

// Slice は Resource への操作結果を EntityState に反映します。
type Slice[T any] struct {
	res           Resource[T]
	defaultEntity func() T

	mu    sync.RWMutex
	state EntityState[T]
}

// NewSlice は初期状態の Slice を返します。defaultEntity は Reset と Delete 後の Entity です。
func NewSlice[T any](res Resource[T], defaultEntity func() T) *Slice[T] {
	s := &Slice[T]{res: res, defaultEntity: defaultEntity}
	s.state = s.initial()
	return s
}

// NewTaskSlice は closed=false を初期値とするタスク用の Slice です。
func NewTaskSlice(res Resource[models.Task]) *Slice[models.Task] {
	return NewSlice(res, models.DefaultTask)
}

// NewTagSlice はタグ用の Slice です。
func NewTagSlice(res Resource[models.Tag]) *Slice[models.Tag] {
	return NewSlice(res, func() models.Tag { return models.Tag{} })
}

func (s *Slice[T]) initial() EntityState[T] {
	return EntityState[T]{Entities: []T{}, Entity: s.defaultEntity()}
}

// cloner を実装するエンティティは Snapshot でポインタ項目まで複製されます。
type cloner[T any] interface {
	Clone() T
}

func cloneEntity[T any](v T) T {
	if c, ok := any(v).(cloner[T]); ok {
		return c.Clone()
	}
	return v
}

// Snapshot は現在の状態のコピーを返します。返り値を変更しても Slice の状態には影響しません。
func (s *Slice[T]) Snapshot() EntityState[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Entity = cloneEntity(s.state.Entity)
	st.Entities = make([]T, len(s.state.Entities))
	for i, e := range s.state.Entities {
		st.Entities[i] = cloneEntity(e)
	}
	return st
}

// Reset は初期状態に戻します。
func (s *Slice[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.initial()
}

func (s *Slice[T]) update(fn func(st *EntityState[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func (s *Slice[T]) fetchPending() {
	s.update(func(st *EntityState[T]) {
		st.ErrorMessage = ""
		st.UpdateSuccess = false
		st.Loading = true
	})
}

func (s *Slice[T]) updatePending() {
	s.update(func(st *EntityState[T]) {
		st.ErrorMessage = ""
		st.UpdateSuccess = false
		st.Updating = true
	})
}

func (s *Slice[T]) rejected(err error) error {
	s.update(func(st *EntityState[T]) {
		st.Loading = false
		st.Updating = false
		st.UpdateSuccess = false
		st.ErrorMessage = err.Error()
	})
	return err
}

// FetchAll は一覧を取得し、Entities と TotalItems を更新します。
func (s *Slice[T]) FetchAll(ctx context.Context, p models.Pageable) error {
	s.fetchPending()
	page, err := s.res.List(ctx, p)
	if err != nil {
		return s.rejected(err)
	}
	s.update(func(st *EntityState[T]) {
		st.Loading = false
		st.Entities = page.Content
		st.TotalItems = page.Total
	})
	return nil
}

// Fetch は1件を取得し、Entity を更新します。
func (s *Slice[T]) Fetch(ctx context.Context, id int) error {
	s.fetchPending()
	e, err := s.res.Get(ctx, id)
	if err != nil {
		return s.rejected(err)
	}
	s.update(func(st *EntityState[T]) {
		st.Loading = false
		st.Entity = *e
	})
	return nil
}

func (s *Slice[T]) Create(ctx context.Context, e *T) error {
	return s.save(ctx, e, s.res.Create)
}

func (s *Slice[T]) Update(ctx context.Context, e *T) error {
	return s.save(ctx, e, s.res.Update)
}

func (s *Slice[T]) Patch(ctx context.Context, e *T) error {
	return s.save(ctx, e, s.res.Patch)
}

func (s *Slice[T]) save(ctx context.Context, e *T, op func(context.Context, *T) (*T, error)) error {
	s.updatePending()
	saved, err := op(ctx, e)
	if err != nil {
		return s.rejected(err)
	}
	s.update(func(st *EntityState[T]) {
		st.Updating = false
		st.Loading = false
		st.UpdateSuccess = true
		st.Entity = *saved
	})
	return nil
}

// Delete は削除に成功すると Entity を初期値に戻します。
func (s *Slice[T]) Delete(ctx context.Context, id int) error {
	s.updatePending()
	if err := s.res.Delete(ctx, id); err != nil {
		return s.rejected(err)
	}
	s.update(func(st *EntityState[T]) {
		st.Updating = false
		st.UpdateSuccess = true
		st.Entity = s.defaultEntity()
	})
	return nil
}
