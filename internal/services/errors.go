package services

import (
	"errors"

	"task-manager/internal/models"
)

var (
	// ErrIDExists は新規作成時にIDが指定されている場合のエラーです。
	ErrIDExists = errors.New("a new entity cannot already have an ID")
	// ErrIDNull は更新時にIDが無い場合のエラーです。
	ErrIDNull = errors.New("invalid id: id is null")
	// ErrIDInvalid はボディのIDとパスのIDが一致しない場合のエラーです。
	ErrIDInvalid = errors.New("invalid id: id does not match path")
	// ErrBadPeriod は日・週・月の指定が不正な場合のエラーです。
	ErrBadPeriod = errors.New("invalid period")
	// ErrValidation は入力値が不正な場合のエラーです。
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials はログインに失敗した場合のエラーです。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidResetToken はリセットトークンが無効・期限切れ・使用済みの場合のエラーです。
	ErrInvalidResetToken = errors.New("invalid or expired token")
)

// Caller はリクエストを行った認証済みユーザーです。
type Caller struct {
	UserID int
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// CanAccess は所有者本人か admin の場合に true を返します。
func (c Caller) CanAccess(ownerID int) bool {
	return c.IsAdmin() || ownerID == c.UserID
}
