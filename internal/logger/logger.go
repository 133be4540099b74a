// Package logger は標準 log パッケージの上にログレベルを提供します。
package logger

import (
	stdlog "log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// ParseLevel は設定値の文字列をレベルに変換します。不明な値は Info として扱います。
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "err", "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) { current.Store(int32(l)) }

func GetLevel() Level { return Level(current.Load()) }

func enabled(l Level) bool { return GetLevel() <= l }

func Debugf(format string, v ...any) {
	if enabled(LevelDebug) {
		stdlog.Printf("[DEBUG] "+format, v...)
	}
}

func Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		stdlog.Printf("[INFO] "+format, v...)
	}
}

func Warnf(format string, v ...any) {
	if enabled(LevelWarn) {
		stdlog.Printf("[WARN] "+format, v...)
	}
}

func Errorf(format string, v ...any) {
	if enabled(LevelError) {
		stdlog.Printf("[ERROR] "+format, v...)
	}
}
