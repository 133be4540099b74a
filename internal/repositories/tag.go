package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"task-manager/internal/models"
)

// TagRepository は tags テーブルを扱います。
type TagRepository struct {
	DB *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{DB: db}
}

var tagSortColumns = map[string]string{
	"id":   "g.id",
	"name": "g.name",
}

const selectTag = "SELECT g.id, g.name, g.user_id, u.username FROM tags g LEFT JOIN users u ON u.id = g.user_id"

func scanTag(row scanner) (models.Tag, error) {
	var (
		g      models.Tag
		name   sql.NullString
		userID sql.NullInt64
		login  sql.NullString
	)
	if err := row.Scan(&g.ID, &name, &userID, &login); err != nil {
		return g, err
	}
	if name.Valid {
		g.Name = &name.String
	}
	g.User = userRef(userID, login)
	return g, nil
}

func queryTags(ctx context.Context, q querier, query string, args ...any) ([]models.Tag, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		g, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan tag: %w", err)
		}
		tags = append(tags, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

func findTag(ctx context.Context, q querier, id int) (*models.Tag, error) {
	g, err := scanTag(q.QueryRowContext(ctx, selectTag+" WHERE g.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("could not query tag: %w", err)
	}
	return &g, nil
}

// Create は新しいタグを挿入します。
func (r *TagRepository) Create(ctx context.Context, g *models.Tag) (*models.Tag, error) {
	result, err := r.DB.ExecContext(ctx, "INSERT INTO tags (name, user_id) VALUES (?, ?)", g.Name, nullableUserID(g.User))
	if err != nil {
		return nil, fmt.Errorf("could not insert tag: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("could not get last insert ID: %w", err)
	}
	return findTag(ctx, r.DB, int(id))
}

// Update はタグの名前と所有者を置き換えます。
func (r *TagRepository) Update(ctx context.Context, g *models.Tag) (*models.Tag, error) {
	var updated *models.Tag
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := findTag(ctx, tx, g.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE tags SET name = ?, user_id = ? WHERE id = ?", g.Name, nullableUserID(g.User), g.ID); err != nil {
			return fmt.Errorf("could not update tag: %w", err)
		}
		var err error
		updated, err = findTag(ctx, tx, g.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindByID はタグと、そのタグが付いたタスクを返します。
// Tasks 内のタスクにはタグを読み込みません。
func (r *TagRepository) FindByID(ctx context.Context, id int) (*models.Tag, error) {
	g, err := findTag(ctx, r.DB, id)
	if err != nil {
		return nil, err
	}
	tasks, err := queryTasks(ctx, r.DB,
		selectTask+" JOIN rel_task__tag r ON r.task_id = t.id WHERE r.tag_id = ? ORDER BY t.id", id)
	if err != nil {
		return nil, err
	}
	g.Tasks = tasks
	return g, nil
}

// FindByIDs は指定されたIDのうち存在するタグを返します。
func (r *TagRepository) FindByIDs(ctx context.Context, ids []int) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	return queryTags(ctx, r.DB, selectTag+" WHERE g.id IN ("+placeholders(len(ids))+") ORDER BY g.id", intArgs(ids)...)
}

// FindAll は全タグをページ単位で返します。
func (r *TagRepository) FindAll(ctx context.Context, p models.Pageable) (*models.Page[models.Tag], error) {
	return r.findPage(ctx, "", nil, p)
}

// FindByUserID はユーザーのタグをページ単位で返します。
func (r *TagRepository) FindByUserID(ctx context.Context, userID int, p models.Pageable) (*models.Page[models.Tag], error) {
	return r.findPage(ctx, " WHERE g.user_id = ?", []any{userID}, p)
}

// FindAllByUserID はユーザーの全タグを名前、ID の順で返します。
func (r *TagRepository) FindAllByUserID(ctx context.Context, userID int) ([]models.Tag, error) {
	return queryTags(ctx, r.DB, selectTag+" WHERE g.user_id = ? ORDER BY g.name, g.id", userID)
}

// Delete はタグとタスクとの関連を削除します。
func (r *TagRepository) Delete(ctx context.Context, id int) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM rel_task__tag WHERE tag_id = ?", id); err != nil {
			return fmt.Errorf("could not delete tag relations: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("could not delete tag: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get rows affected: %w", err)
		}
		if n == 0 {
			return ErrTagNotFound
		}
		return nil
	})
}

func (r *TagRepository) findPage(ctx context.Context, where string, args []any, p models.Pageable) (*models.Page[models.Tag], error) {
	p = p.Normalize()
	order, err := orderBy(p.Sort, tagSortColumns, "g.id")
	if err != nil {
		return nil, err
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags g"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("could not count tags: %w", err)
	}

	pageArgs := append(append([]any{}, args...), p.Size, p.Offset())
	tags, err := queryTags(ctx, r.DB, selectTag+where+order+" LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, err
	}
	return &models.Page[models.Tag]{Content: tags, Total: total, Pageable: p}, nil
}
