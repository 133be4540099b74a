// Package config はアプリケーション設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// ErrMissingJWTSecret は JWT_SECRET が設定されていない場合のエラーです。
var ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable not set")

// Config はアプリケーション全体の設定です。
type Config struct {
	Server ServerConfig
	Ops    OpsConfig
	DB     DBConfig
	JWT    JWTConfig
	CORS   CORSConfig
	Log    LogConfig
	App    AppConfig
	SMTP   SMTPConfig
}

type ServerConfig struct {
	Addr string
	Mode string // gin の debug / release / test
}

type OpsConfig struct {
	Addr string // 空の場合 ops リスナーは起動しない
}

// DBConfig はデータベース接続設定です。DSN が空の場合は個別の項目から組み立てます。
type DBConfig struct {
	Driver string
	DSN    string
	User   string
	Pass   string
	Host   string
	Port   string
	Name   string
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type CORSConfig struct {
	AllowOrigins []string
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	Name        string
	Timezone    string
	FrontendURL string
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

var defaults = map[string]any{
	"server.addr":        ":8080",
	"server.mode":        "debug",
	"ops.addr":           ":9090",
	"db.driver":          DriverMySQL,
	"db.dsn":             "",
	"db.user":            "",
	"db.pass":            "",
	"db.host":            "127.0.0.1",
	"db.port":            "3306",
	"db.name":            "task_manager",
	"jwt.secret":         "",
	"jwt.ttl":            "24h",
	"cors.allow_origins": []string{"http://localhost:3000"},
	"log.level":          "info",
	"app.name":           "taskManagerApp",
	"app.timezone":       "UTC",
	"app.frontend_url":   "http://localhost:3000",
	"smtp.host":          "",
	"smtp.port":          "2525",
	"smtp.user":          "",
	"smtp.password":      "",
	"smtp.from":          "",
}

// Load は既定値、設定ファイル、環境変数の順に設定を読み込みます。
// path が空の場合はカレントディレクトリの config.yaml を探し、無ければ無視します。
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// 既存の .env との互換
	if err := v.BindEnv("app.frontend_url", "APP_FRONTEND_URL", "FRONTEND_URL"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
			Mode: v.GetString("server.mode"),
		},
		Ops: OpsConfig{Addr: v.GetString("ops.addr")},
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("db.driver")),
			DSN:    v.GetString("db.dsn"),
			User:   v.GetString("db.user"),
			Pass:   v.GetString("db.pass"),
			Host:   v.GetString("db.host"),
			Port:   v.GetString("db.port"),
			Name:   v.GetString("db.name"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
		},
		CORS: CORSConfig{AllowOrigins: splitList(v.GetStringSlice("cors.allow_origins"))},
		Log:  LogConfig{Level: v.GetString("log.level")},
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Timezone:    v.GetString("app.timezone"),
			FrontendURL: v.GetString("app.frontend_url"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetString("smtp.port"),
			User:     v.GetString("smtp.user"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は起動に必須の設定を検証します。
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("jwt.ttl must be positive, got %s", c.JWT.TTL)
	}
	switch c.DB.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported db.driver %q", c.DB.Driver)
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server.mode %q", c.Server.Mode)
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	return nil
}

// DataSourceName はドライバに渡す接続文字列を返します。
func (c DBConfig) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverSQLite {
		return "file:task_manager.db"
	}
	// 例: user:pass@tcp(db:3306)/dbname?parseTime=true&loc=UTC
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC", c.User, c.Pass, c.Host, c.Port, c.Name)
}

// Location はタスクの日・週・月を区切るタイムゾーンを返します。
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid app.timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ResetURL はパスワードリセット用のフロントエンド URL を組み立てます。
func (c AppConfig) ResetURL(token string) string {
	return strings.TrimRight(c.FrontendURL, "/") + "/reset-password/" + url.PathEscape(token)
}

// splitList は "a,b" 形式の環境変数とYAMLのリストの両方を受け付けます。
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
