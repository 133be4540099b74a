package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"task-manager/internal/config"
	"task-manager/internal/logger"
	"task-manager/internal/models"
	"task-manager/internal/repositories"
)

const resetTokenTTL = time.Hour

// UserService はユーザー関連のビジネスロジックを扱います。
type UserService struct {
	userRepo       *repositories.UserRepository
	resetTokenRepo repositories.ResetTokenRepository
	mailer         Mailer
	app            config.AppConfig
}

// NewUserService は新しいUserServiceを作成します。
func NewUserService(userRepo *repositories.UserRepository, resetTokenRepo repositories.ResetTokenRepository, mailer Mailer, app config.AppConfig) *UserService {
	return &UserService{userRepo: userRepo, resetTokenRepo: resetTokenRepo, mailer: mailer, app: app}
}

// RegisterUser はユーザーを登録します。
func (s *UserService) RegisterUser(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	hashedPassword, err := repositories.HashPassword(req.Password)
	if err != nil {
		logger.Errorf("Failed to hash password: %v", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
	}

	createdUser, err := s.userRepo.Create(ctx, newUser)
	if err != nil {
		return nil, err
	}
	createdUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return createdUser, nil
}

// AuthenticateUser はユーザーを認証し、成功したらユーザーを返します。
func (s *UserService) AuthenticateUser(ctx context.Context, req models.UserLoginRequest) (*models.User, error) {
	foundUser, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := repositories.VerifyPassword(foundUser.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	foundUser.PasswordHash = "" // レスポンスにパスワードを含めない
	return foundUser, nil
}

// GetAccount は認証済みユーザー自身の情報を返します。
func (s *UserService) GetAccount(ctx context.Context, caller Caller) (*models.User, error) {
	u, err := s.userRepo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// ListUsers はフォームのユーザー選択用の一覧を返します。admin 以外は自分だけです。
func (s *UserService) ListUsers(ctx context.Context, caller Caller) ([]*models.User, error) {
	if !caller.IsAdmin() {
		u, err := s.GetAccount(ctx, caller)
		if err != nil {
			return nil, err
		}
		return []*models.User{u}, nil
	}
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}

func (s *UserService) ForgotPasswordUser(ctx context.Context, email string) error {
	// 1. ユーザーが存在するか確認
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		// メール存在しない → バレないように成功扱い
		logger.Infof("email not found but returning OK: %s", email)
		return nil
	}

	if err := s.resetTokenRepo.CleanupExpired(ctx); err != nil {
		logger.Warnf("Failed to clean up reset tokens: %v", err)
	}

	// 2. パスワードリセット用のトークンを生成
	token, err := generateResetToken()
	if err != nil {
		logger.Errorf("Failed to generate reset token: %v", err)
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	// 3. トークンをデータベースに保存（有効期限1時間）
	resetToken := &models.PasswordResetToken{
		UserID:    uint(user.ID),
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.resetTokenRepo.Save(ctx, resetToken); err != nil {
		return fmt.Errorf("failed to save reset token: %w", err)
	}

	// 4. メール送信。失敗してもレスポンスは変えない
	body := fmt.Sprintf("以下のURLからパスワードを再設定してください。\r\n%s", s.app.ResetURL(token))
	if err := s.mailer.Send(ctx, email, "パスワードリセット", body); err != nil {
		logger.Errorf("failed to send reset email: %v", err)
	}
	return nil
}

// generateResetToken はパスワードリセット用のランダムトークンを生成します。
func generateResetToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// ResetPasswordUser はトークンを使ってパスワードをリセットします。
func (s *UserService) ResetPasswordUser(ctx context.Context, token, newPassword string) error {
	resetToken, err := s.resetTokenRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if time.Now().After(resetToken.ExpiresAt) {
		return fmt.Errorf("%w: token expired", ErrInvalidResetToken)
	}
	if resetToken.UsedAt != nil {
		return fmt.Errorf("%w: token already used", ErrInvalidResetToken)
	}

	hashedPassword, err := repositories.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, resetToken.UserID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.resetTokenRepo.MarkUsed(ctx, resetToken.ID); err != nil {
		// 失敗しても続行
		logger.Warnf("Failed to mark token as used: %v", err)
	}
	return nil
}
