package services

import (
	"context"
	"fmt"
	"net/smtp"

	"task-manager/internal/config"
	"task-manager/internal/logger"
)

// Mailer はメール送信を抽象化します。
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer は SMTP ホストが設定されていれば SMTPMailer、無ければ LogMailer を返します。
func NewMailer(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer は net/smtp でメールを送信します。
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}
	message := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, from, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// LogMailer はメールを送らずにログへ出力します。開発環境用です。
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	logger.Infof("mail to=%s subject=%q body=%q", to, subject, body)
	return nil
}
