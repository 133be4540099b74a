package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"task-manager/internal/models"
)

// resource は1種類のエンティティに対する CRUD です。
type resource[T any] struct {
	c    *Client
	path string
	id   func(*T) int
}

func (r *resource[T]) List(ctx context.Context, p models.Pageable) (*models.Page[T], error) {
	return r.listAt(ctx, r.path, p, nil)
}

func (r *resource[T]) listAt(ctx context.Context, path string, p models.Pageable, extra url.Values) (*models.Page[T], error) {
	q := pageQuery(p)
	for k, vs := range extra {
		q[k] = vs
	}
	var content []T
	h, err := r.c.do(ctx, http.MethodGet, path, q, nil, &content)
	if err != nil {
		return nil, err
	}
	if content == nil {
		content = []T{}
	}
	return &models.Page[T]{Content: content, Total: totalCount(h, len(content)), Pageable: p.Normalize()}, nil
}

func (r *resource[T]) Get(ctx context.Context, id int) (*T, error) {
	var e T
	if _, err := r.c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", r.path, id), nil, nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *resource[T]) Create(ctx context.Context, e *T) (*T, error) {
	var created T
	if _, err := r.c.do(ctx, http.MethodPost, r.path, nil, e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update は PUT で丸ごと置き換えます。
func (r *resource[T]) Update(ctx context.Context, e *T) (*T, error) {
	var updated T
	if _, err := r.c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", r.path, r.id(e)), nil, e, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Patch は null でない項目だけを更新します。
func (r *resource[T]) Patch(ctx context.Context, e *T) (*T, error) {
	var updated T
	path := fmt.Sprintf("%s/%d", r.path, r.id(e))
	if _, err := r.c.doContent(ctx, http.MethodPatch, path, nil, "application/merge-patch+json", e, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *resource[T]) Delete(ctx context.Context, id int) error {
	_, err := r.c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", r.path, id), nil, nil, nil)
	return err
}

// TaskResource は /api/tasks を扱います。
type TaskResource struct {
	*resource[models.Task]
}

// ListLazy はタグを読み込まずに一覧を取得します。
func (r *TaskResource) ListLazy(ctx context.Context, p models.Pageable) (*models.Page[models.Task], error) {
	return r.listAt(ctx, r.path, p, url.Values{"eagerload": {"false"}})
}

func (r *TaskResource) ByUser(ctx context.Context, userID int, p models.Pageable) (*models.Page[models.Task], error) {
	return r.listAt(ctx, fmt.Sprintf("%s/user-tasks/%d", r.path, userID), p, nil)
}

func (r *TaskResource) ByTitle(ctx context.Context, title string, userID int, p models.Pageable) (*models.Page[models.Task], error) {
	return r.listAt(ctx, fmt.Sprintf("%s/tasks-by-title/%s/%d", r.path, pathSegment(title), userID), p, nil)
}

// pathSegment は "/" を含む任意の文字列を1つのパス要素にします。
// サーバーは生のパスでルーティングしてから値をデコードするため "+" もエスケープする。
func pathSegment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "+", "%2B")
}

// ByDay は "2006-01-02" 形式の日で検索します。
func (r *TaskResource) ByDay(ctx context.Context, day string, userID int, p models.Pageable) (*models.Page[models.Task], error) {
	return r.listAt(ctx, fmt.Sprintf("%s/tasks-by-day/%s/%d", r.path, url.PathEscape(day), userID), p, nil)
}

// ByWeek は "2021-W01" 形式の ISO 週で検索します。
func (r *TaskResource) ByWeek(ctx context.Context, week string, userID int, p models.Pageable) (*models.Page[models.Task], error) {
	return r.listAt(ctx, fmt.Sprintf("%s/tasks-by-week/%s/%d", r.path, url.PathEscape(week), userID), p, nil)
}

// ByMonth は "2006-01" 形式の月で検索します。
func (r *TaskResource) ByMonth(ctx context.Context, month string, userID int, p models.Pageable) (*models.Page[models.Task], error) {
	return r.listAt(ctx, fmt.Sprintf("%s/tasks-by-month/%s/%d", r.path, url.PathEscape(month), userID), p, nil)
}

// UpdateTags はタスクのタグ集合を置き換えます。
func (r *TaskResource) UpdateTags(ctx context.Context, taskID int, tags []models.Tag) (*models.Task, error) {
	if tags == nil {
		tags = []models.Tag{}
	}
	var task models.Task
	if _, err := r.c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%d/update-tags", r.path, taskID), nil, tags, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Rel はユーザーのタスクをタグごとにまとめて返します。
func (r *TaskResource) Rel(ctx context.Context, userID int) ([]models.TagTasks, error) {
	var groups []models.TagTasks
	if _, err := r.c.do(ctx, http.MethodGet, fmt.Sprintf("%s/rel/%d", r.path, userID), nil, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Solved はタグごとの完了・未完了の件数を返します。
func (r *TaskResource) Solved(ctx context.Context, userID int) ([]models.TagResolution, error) {
	var counts []models.TagResolution
	if _, err := r.c.do(ctx, http.MethodGet, fmt.Sprintf("%s/rel/%d/solved", r.path, userID), nil, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// TagResource は /api/tags を扱います。
type TagResource struct {
	*resource[models.Tag]
}
