package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"task-manager/internal/models"
)

// TaskRepository は tasks と rel_task__tag テーブルを扱います。
type TaskRepository struct {
	DB *sql.DB
}

// NewTaskRepository は新しいTaskRepositoryインスタンスを作成します。
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

// taskSortColumns はソート可能なJSONプロパティと列の対応です。
var taskSortColumns = map[string]string{
	"id":            "t.id",
	"title":         "t.title",
	"executionTime": "t.execution_time",
	"durationMin":   "t.duration_min",
	"closed":        "t.closed",
}

const selectTask = `SELECT t.id, t.title, t.description, t.execution_time, t.duration_min, t.closed,
	t.user_id, u.username, t.created_at, t.updated_at
	FROM tasks t LEFT JOIN users u ON u.id = t.user_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (models.Task, error) {
	var (
		t        models.Task
		title    sql.NullString
		desc     sql.NullString
		execTime sql.NullTime
		duration sql.NullInt64
		closed   sql.NullBool
		userID   sql.NullInt64
		login    sql.NullString
	)
	err := row.Scan(&t.ID, &title, &desc, &execTime, &duration, &closed, &userID, &login, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if title.Valid {
		t.Title = &title.String
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if execTime.Valid {
		v := execTime.Time.UTC()
		t.ExecutionTime = &v
	}
	if duration.Valid {
		t.DurationMin = &duration.Int64
	}
	if closed.Valid {
		t.Closed = &closed.Bool
	}
	t.User = userRef(userID, login)
	return t, nil
}

// queryTasks は結果を読み切ってから返します。SQLite では接続が1本のため、
// rows を開いたまま別のクエリを発行できません。
func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// loadTags はタスクのタグをまとめて読み込みます。
func loadTags(ctx context.Context, q querier, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	index := make(map[int]int, len(tasks))
	ids := make([]int, 0, len(tasks))
	for i := range tasks {
		tasks[i].Tags = []models.Tag{}
		index[tasks[i].ID] = i
		ids = append(ids, tasks[i].ID)
	}

	query := `SELECT r.task_id, g.id, g.name, g.user_id, u.username
		FROM rel_task__tag r
		JOIN tags g ON g.id = r.tag_id
		LEFT JOIN users u ON u.id = g.user_id
		WHERE r.task_id IN (` + placeholders(len(ids)) + `)
		ORDER BY g.id`
	rows, err := q.QueryContext(ctx, query, intArgs(ids)...)
	if err != nil {
		return fmt.Errorf("could not query task tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID int
			tag    models.Tag
			name   sql.NullString
			userID sql.NullInt64
			login  sql.NullString
		)
		if err := rows.Scan(&taskID, &tag.ID, &name, &userID, &login); err != nil {
			return fmt.Errorf("could not scan task tag: %w", err)
		}
		if name.Valid {
			tag.Name = &name.String
		}
		tag.User = userRef(userID, login)
		i := index[taskID]
		tasks[i].AddTag(tag)
	}
	return rows.Err()
}

func findTask(ctx context.Context, q querier, id int) (*models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, selectTask+" WHERE t.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}
	tasks := []models.Task{t}
	if err := loadTags(ctx, q, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func taskExists(ctx context.Context, q querier, id int) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not check task: %w", err)
	}
	return true, nil
}

// replaceTags は関連を削除してから入れ直します。重複したIDは1度だけ登録します。
func replaceTags(ctx context.Context, q querier, taskID int, tagIDs []int) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM rel_task__tag WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("could not clear task tags: %w", err)
	}
	seen := make(map[int]bool, len(tagIDs))
	for _, tagID := range tagIDs {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true
		if _, err := q.ExecContext(ctx, "INSERT INTO rel_task__tag (task_id, tag_id) VALUES (?, ?)", taskID, tagID); err != nil {
			return fmt.Errorf("could not insert task tag: %w", err)
		}
	}
	return nil
}

// Create はタスクとタグの関連を1つのトランザクションで保存し、保存後の状態を返します。
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	now := dbTime(time.Now())
	var created *models.Task
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (title, description, execution_time, duration_min, closed, user_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Title, t.Description, nullableTime(t.ExecutionTime), t.DurationMin, t.Closed, nullableUserID(t.User), now, now,
		)
		if err != nil {
			return fmt.Errorf("could not insert task: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("could not get last insert ID: %w", err)
		}
		if err := replaceTags(ctx, tx, int(id), t.TagIDs()); err != nil {
			return err
		}
		created, err = findTask(ctx, tx, int(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update はタスクを丸ごと置き換えます。タグも t.Tags の内容に置き換わります。
func (r *TaskRepository) Update(ctx context.Context, t *models.Task) (*models.Task, error) {
	var updated *models.Task
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		// MySQL は値が変わらない UPDATE で 0 行を返すため、存在確認を先に行う
		ok, err := taskExists(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, description = ?, execution_time = ?, duration_min = ?, closed = ?,
			user_id = ?, updated_at = ? WHERE id = ?`,
			t.Title, t.Description, nullableTime(t.ExecutionTime), t.DurationMin, t.Closed,
			nullableUserID(t.User), dbTime(time.Now()), t.ID,
		)
		if err != nil {
			return fmt.Errorf("could not update task: %w", err)
		}
		if err := replaceTags(ctx, tx, t.ID, t.TagIDs()); err != nil {
			return err
		}
		updated, err = findTask(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReplaceTags はタスクのタグ集合だけを置き換え、再読込したタスクを返します。
func (r *TaskRepository) ReplaceTags(ctx context.Context, taskID int, tagIDs []int) (*models.Task, error) {
	var updated *models.Task
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		ok, err := taskExists(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTaskNotFound
		}
		if err := replaceTags(ctx, tx, taskID, tagIDs); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE tasks SET updated_at = ? WHERE id = ?", dbTime(time.Now()), taskID); err != nil {
			return fmt.Errorf("could not touch task: %w", err)
		}
		updated, err = findTask(ctx, tx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// FindByID はタグを含めてタスクを取得します。
func (r *TaskRepository) FindByID(ctx context.Context, id int) (*models.Task, error) {
	return findTask(ctx, r.DB, id)
}

// ExistsByID はタスクが存在するかを返します。
func (r *TaskRepository) ExistsByID(ctx context.Context, id int) (bool, error) {
	return taskExists(ctx, r.DB, id)
}

// Delete はタスクとタグの関連を削除します。
func (r *TaskRepository) Delete(ctx context.Context, id int) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM rel_task__tag WHERE task_id = ?", id); err != nil {
			return fmt.Errorf("could not delete task tags: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("could not delete task: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get rows affected: %w", err)
		}
		if n == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}

// FindAll は全ユーザーのタスクをページ単位で返します。
func (r *TaskRepository) FindAll(ctx context.Context, p models.Pageable, eager bool) (*models.Page[models.Task], error) {
	return r.findPage(ctx, "", nil, p, eager)
}

// FindByUserID はユーザーのタスクをページ単位で返します。
func (r *TaskRepository) FindByUserID(ctx context.Context, userID int, p models.Pageable, eager bool) (*models.Page[models.Task], error) {
	return r.findPage(ctx, " WHERE t.user_id = ?", []any{userID}, p, eager)
}

// FindByUserIDAndTitle はタイトルに title を含むタスクを大文字小文字を区別せずに探します。
func (r *TaskRepository) FindByUserIDAndTitle(ctx context.Context, userID int, title string, p models.Pageable, eager bool) (*models.Page[models.Task], error) {
	pattern := "%" + escapeLike(strings.ToLower(title)) + "%"
	return r.findPage(ctx, " WHERE t.user_id = ? AND LOWER(t.title) LIKE ? ESCAPE '!'", []any{userID, pattern}, p, eager)
}

// FindByUserIDAndExecutionRange は実行日時が [from, to) に入るタスクを返します。
func (r *TaskRepository) FindByUserIDAndExecutionRange(ctx context.Context, userID int, from, to time.Time, p models.Pageable, eager bool) (*models.Page[models.Task], error) {
	where := " WHERE t.user_id = ? AND t.execution_time >= ? AND t.execution_time < ?"
	return r.findPage(ctx, where, []any{userID, dbTime(from), dbTime(to)}, p, eager)
}

// FindAllByUserID はユーザーの全タスクをタグ付きでID順に返します。レポート集計用です。
func (r *TaskRepository) FindAllByUserID(ctx context.Context, userID int) ([]models.Task, error) {
	tasks, err := queryTasks(ctx, r.DB, selectTask+" WHERE t.user_id = ? ORDER BY t.id", userID)
	if err != nil {
		return nil, err
	}
	if err := loadTags(ctx, r.DB, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) findPage(ctx context.Context, where string, args []any, p models.Pageable, eager bool) (*models.Page[models.Task], error) {
	p = p.Normalize()
	order, err := orderBy(p.Sort, taskSortColumns, "t.id")
	if err != nil {
		return nil, err
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks t"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("could not count tasks: %w", err)
	}

	pageArgs := append(append([]any{}, args...), p.Size, p.Offset())
	tasks, err := queryTasks(ctx, r.DB, selectTask+where+order+" LIMIT ? OFFSET ?", pageArgs...)
	if err != nil {
		return nil, err
	}
	if eager {
		if err := loadTags(ctx, r.DB, tasks); err != nil {
			return nil, err
		}
	}
	return &models.Page[models.Task]{Content: tasks, Total: total, Pageable: p}, nil
}

// escapeLike は LIKE のワイルドカードを '!' でエスケープします。
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
