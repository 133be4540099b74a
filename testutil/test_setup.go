// Package testutil はテスト用のデータベースとルーターを用意します。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"task-manager/internal/config"
	"task-manager/internal/database"
	"task-manager/internal/logger"
	"task-manager/internal/models"
	"task-manager/internal/repositories"
	"task-manager/internal/routes"
)

// テストで使うシードユーザー
const (
	UserEmail     = "normal_user@example.com"
	UserPassword  = "password123"
	AdminEmail    = "admin@example.com"
	AdminPassword = "adminpass"
	JWTSecret     = "test_very_secret_jwt_key_here"
)

// TestConfig はテスト用の設定を返します。
func TestConfig(db config.DBConfig) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: ":0", Mode: gin.TestMode},
		DB:     db,
		JWT:    config.JWTConfig{Secret: JWTSecret, TTL: time.Hour},
		CORS:   config.CORSConfig{AllowOrigins: []string{"http://localhost:3000"}},
		Log:    config.LogConfig{Level: "warn"},
		App: config.AppConfig{
			Name:        "taskManagerApp",
			Timezone:    "UTC",
			FrontendURL: "http://localhost:3000",
		},
	}
}

// testDBConfig は TEST_DB_DRIVER=mysql の場合は TEST_DB_* から MySQL に、
// それ以外は一時ディレクトリの SQLite に接続します。
func testDBConfig(t *testing.T) config.DBConfig {
	_ = godotenv.Load("../../.env")

	if os.Getenv("TEST_DB_DRIVER") != config.DriverMySQL {
		return config.DBConfig{
			Driver: config.DriverSQLite,
			DSN:    "file:" + filepath.Join(t.TempDir(), "test.db"),
		}
	}
	dbHost := os.Getenv("TEST_DB_HOST")
	// In Docker container, use "db" as hostname instead of 127.0.0.1
	if dbHost == "127.0.0.1" && os.Getenv("IN_DOCKER") != "" {
		dbHost = "db"
	}
	return config.DBConfig{
		Driver: config.DriverMySQL,
		User:   os.Getenv("TEST_DB_USER"),
		Pass:   os.Getenv("TEST_DB_PASS"),
		Host:   dbHost,
		Port:   os.Getenv("TEST_DB_PORT"),
		Name:   os.Getenv("TEST_DB_NAME"),
	}
}

// SetupTestDB はテスト用のデータベース接続を確立し、テーブルを作成し、テストデータを投入します。
func SetupTestDB(t *testing.T) (*sql.DB, *gin.Engine, *repositories.TaskRepository, *repositories.UserRepository) {
	t.Helper()
	logger.SetLevel(logger.LevelWarn)

	dbCfg := testDBConfig(t)
	db, err := database.InitDB(dbCfg)
	if err != nil {
		t.Fatalf("Failed to open database connection: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if dbCfg.Driver == config.DriverMySQL {
		// テストのたびにクリーンな状態にするため、既存のテーブルを削除
		_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=0")
		for _, table := range []string{"rel_task__tag", "tasks", "tags", "password_reset_tokens", "users"} {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				t.Fatalf("Failed to drop %s: %v", table, err)
			}
		}
		_, _ = db.Exec("SET FOREIGN_KEY_CHECKS=1")
	}
	require.NoError(t, database.Migrate(db, dbCfg.Driver))

	// テストユーザーの挿入 (id 1: normal_user, id 2: admin_user)
	userRepo := repositories.NewUserRepository(db)
	CreateTestUser(t, userRepo, "normal_user", UserEmail, UserPassword, models.RoleUser)
	CreateTestUser(t, userRepo, "admin_user", AdminEmail, AdminPassword, models.RoleAdmin)

	router := SetupTestRouter(t, db)
	return db, router, repositories.NewTaskRepository(db), userRepo
}

// SetupTestRouter はテスト用のGinルーターをセットアップします。
func SetupTestRouter(t *testing.T, db *sql.DB, opts ...routes.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r, err := routes.SetupRouter(db, TestConfig(config.DBConfig{}), opts...)
	require.NoError(t, err)
	return r
}

func CreateTestUser(t *testing.T, userRepo *repositories.UserRepository, username, email, password, role string) *models.User {
	t.Helper()
	hashedPassword, err := repositories.HashPassword(password)
	require.NoError(t, err)

	newUser := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         role,
	}

	createdUser, err := userRepo.Create(context.Background(), &newUser)
	require.NoError(t, err)
	require.NotNil(t, createdUser)
	require.NotEqual(t, 0, createdUser.ID)
	return createdUser
}

// DoJSON は JSON ボディ付きのリクエストをルーターに送ります。body が nil の場合はボディ無しです。
func DoJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// CreateTestTask はAPI経由でTaskを作成します。
func CreateTestTask(t *testing.T, router http.Handler, token string, payload map[string]any) *models.Task {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/tasks", token, payload)
	require.Equal(t, http.StatusCreated, resp.Code, "Task作成に失敗しました: %s", resp.Body.String())

	var created models.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}

// CreateTestTag はAPI経由でTagを作成します。
func CreateTestTag(t *testing.T, router http.Handler, token, name string) *models.Tag {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/tags", token, map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code, "Tag作成に失敗しました: %s", resp.Body.String())

	var created models.Tag
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	return &created
}

func LoginAndGetToken(t *testing.T, router http.Handler, email, password string) (string, error) {
	t.Helper()
	resp := DoJSON(t, router, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.Code != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d: %s", resp.Code, resp.Body.String())
	}

	var loginRes models.LoginResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &loginRes); err != nil {
		return "", fmt.Errorf("failed to unmarshal login response: %w", err)
	}
	if loginRes.Token == "" {
		return "", errors.New("token not found in login response")
	}
	return loginRes.Token, nil
}

// Mail は Mailbox が受け取ったメールです。
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailbox は送信されたメールを記録する Mailer です。
type Mailbox struct {
	mu    sync.Mutex
	mails []Mail
}

func (m *Mailbox) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mails = append(m.mails, Mail{To: to, Subject: subject, Body: body})
	return nil
}

// Mails は受け取ったメールのコピーを返します。
func (m *Mailbox) Mails() []Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mail(nil), m.mails...)
}
