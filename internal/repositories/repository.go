// Package repositories はデータベース操作を行うリポジトリを提供します。
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"task-manager/internal/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTagNotFound  = errors.New("tag not found")
	ErrForbidden    = errors.New("access denied")
)

// querier は *sql.DB と *sql.Tx の共通部分です。
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx は fn をトランザクション内で実行し、エラーならロールバックします。
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// isDuplicateKey は MySQL(1062) と SQLite(UNIQUE制約) の重複エラーを判定します。
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		// 拡張エラーコードが無効な接続向け
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

// dbTime は保存・比較に使う時刻を UTC 秒精度にそろえます。
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

func nullableUserID(ref *models.UserRef) any {
	if ref == nil || ref.ID == 0 {
		return nil
	}
	return ref.ID
}

func userRef(id sql.NullInt64, login sql.NullString) *models.UserRef {
	if !id.Valid {
		return nil
	}
	return &models.UserRef{ID: int(id.Int64), Login: login.String}
}

// placeholders は IN 句用の "?, ?, ?" を返します。
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func intArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// orderBy は許可された列のみで ORDER BY 句を組み立てます。
// 並びを安定させるため、最後に必ず主キーを付けます。
func orderBy(sort []models.Order, columns map[string]string, pk string) (string, error) {
	var parts []string
	for _, o := range sort {
		col, ok := columns[o.Property]
		if !ok {
			return "", fmt.Errorf("%w: unknown property %q", models.ErrInvalidSort, o.Property)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, pk+" ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
