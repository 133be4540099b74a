// Package database はデータベース接続とスキーマ作成を扱います。
package database

import (
	"database/sql"
	"database/sql/driver"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"

	"task-manager/internal/config"
	"task-manager/internal/logger"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLite 組み込みの LOWER は ASCII しか変換しないため、MySQL と同じく Unicode で小文字化する関数に置き換える。
// 登録は以降に開く全接続に適用される。
func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("lower", 1, unicodeLower); err != nil {
		panic(fmt.Sprintf("register sqlite lower: %v", err))
	}
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// sqlitePragmas は SQLite 接続ごとに適用する設定です。
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_time_format=sqlite",
}

// InitDB はデータベース接続を初期化し、疎通を確認します。
func InitDB(cfg config.DBConfig) (*sql.DB, error) {
	dsn := cfg.DataSourceName()
	if cfg.Driver == config.DriverSQLite {
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite は書き込みを直列化する
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Infof("Successfully connected to %s database!", cfg.Driver)
	return db, nil
}

// SQLiteDSN は DSN に必要な pragma を付け足します。既に指定されているものは上書きしません。
func SQLiteDSN(dsn string) string {
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, p) {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p
	}
	return dsn
}

// Migrate はドライバに応じたスキーマを適用します。何度実行しても結果は変わりません。
func Migrate(db *sql.DB, driver string) error {
	schema, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Debugf("schema applied for %s", driver)
	return nil
}
