// Package models はTask、Tag、Userなどのドメインモデルを定義します。
package models

import (
	"time"
)

// UserRef はTaskやTagから所有ユーザーを参照するための最小限の情報です。
type UserRef struct {
	ID    int    `json:"id"`
	Login string `json:"login,omitempty"`
}

// Task はスケジュール可能な作業項目です。
// null を許容する項目はポインタで表し、PATCH では nil の項目を「変更なし」として扱います。
type Task struct {
	ID            int        `json:"id,omitempty"`
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	ExecutionTime *time.Time `json:"executionTime"`
	DurationMin   *int64     `json:"durationMin"`
	Closed        *bool      `json:"closed"`
	User          *UserRef   `json:"user"`
	Tags          []Tag      `json:"tags"` // nil はタグ未読込 (PATCHでは変更なし)
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DefaultTask は新規作成フォームの初期値です。
func DefaultTask() Task {
	return Task{Closed: Ptr(false)}
}

// Equal はIDが割り当て済みで一致する場合のみ true を返します。
func (t *Task) Equal(other *Task) bool {
	if t == nil || other == nil {
		return false
	}
	return t.ID != 0 && t.ID == other.ID
}

// IsClosed は closed が null の場合も未完了として扱います。
func (t *Task) IsClosed() bool {
	return t.Closed != nil && *t.Closed
}

// OwnerID は所有ユーザーのIDを返します。未設定の場合は 0 です。
func (t *Task) OwnerID() int {
	if t.User == nil {
		return 0
	}
	return t.User.ID
}

// HasTag はIDが一致するタグを持っているかを返します。
func (t *Task) HasTag(id int) bool {
	for _, tag := range t.Tags {
		if tag.ID == id {
			return true
		}
	}
	return false
}

// AddTag はタグを追加します。既に同じIDのタグがある場合は何もしません。
func (t *Task) AddTag(tag Tag) *Task {
	if tag.ID != 0 && t.HasTag(tag.ID) {
		return t
	}
	t.Tags = append(t.Tags, tag)
	return t
}

// RemoveTag はIDが一致するタグを取り除きます。
func (t *Task) RemoveTag(id int) *Task {
	kept := make([]Tag, 0, len(t.Tags))
	for _, tag := range t.Tags {
		if tag.ID != id {
			kept = append(kept, tag)
		}
	}
	t.Tags = kept
	return t
}

// SetTags はタグ集合を置き換えます。重複したIDは最初のものだけ残します。
func (t *Task) SetTags(tags []Tag) *Task {
	t.Tags = make([]Tag, 0, len(tags))
	for _, tag := range tags {
		t.AddTag(tag)
	}
	return t
}

// TagIDs はタグのIDを順序を保って返します。
func (t *Task) TagIDs() []int {
	ids := make([]int, 0, len(t.Tags))
	for _, tag := range t.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// Clone はポインタ項目とタグを複製したコピーを返します。
func (t Task) Clone() Task {
	c := t
	c.Title = clonePtr(t.Title)
	c.Description = clonePtr(t.Description)
	c.ExecutionTime = clonePtr(t.ExecutionTime)
	c.DurationMin = clonePtr(t.DurationMin)
	c.Closed = clonePtr(t.Closed)
	c.User = clonePtr(t.User)
	if t.Tags != nil {
		c.Tags = make([]Tag, len(t.Tags))
		for i, tag := range t.Tags {
			c.Tags[i] = tag.Clone()
		}
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr は値のポインタを返します。null 許容フィールドの組み立てに使います。
func Ptr[T any](v T) *T {
	return &v
}
