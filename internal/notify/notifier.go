package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"account-backoffice-go/internal/models"

	"go.uber.org/zap"
)

// Notifier delivers out-of-band messages about account activity. Delivery is
// best effort: callers fire notifications after their transaction commits and
// only log failures.
type Notifier interface {
	OperationCreated(ctx context.Context, user *models.User, op *models.Operation)
	OperationStatusChanged(ctx context.Context, user *models.User, op *models.Operation)
	PasswordReset(ctx context.Context, user *models.User, token string)
}

// SMTPNotifier sends plain-text mail. With no host configured it degrades to
// logging each message, which keeps development setups mail-server free.
type SMTPNotifier struct {
	cfg models.SMTPConfig
}

func NewSMTPNotifier(cfg models.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) OperationCreated(ctx context.Context, user *models.User, op *models.Operation) {
	subject := fmt.Sprintf("New %s request", op.OperationType)
	body := fmt.Sprintf("Operation %s: %s of %s %s on account %s is awaiting review.",
		op.ID, op.OperationType, op.Amount.String(), op.Currency, op.AccountNumber)

	recipients := []string{user.Email}
	if n.cfg.AdminAddr != "" {
		recipients = append(recipients, n.cfg.AdminAddr)
	}
	n.send(recipients, subject, body)
}

func (n *SMTPNotifier) OperationStatusChanged(ctx context.Context, user *models.User, op *models.Operation) {
	subject := fmt.Sprintf("Your %s request is %s", op.OperationType, op.Status)
	body := fmt.Sprintf("Operation %s for %s %s is now %s.",
		op.ID, op.Amount.String(), op.Currency, op.Status)
	if op.AdminComment != "" {
		body += "\nComment: " + op.AdminComment
	}
	n.send([]string{user.Email}, subject, body)
}

func (n *SMTPNotifier) PasswordReset(ctx context.Context, user *models.User, token string) {
	subject := "Password reset requested"
	body := fmt.Sprintf("Use this token to reset your password: %s\nThe token expires in one hour.", token)
	n.send([]string{user.Email}, subject, body)
}

func (n *SMTPNotifier) send(to []string, subject, body string) {
	if n.cfg.Host == "" {
		zap.L().Info("Mail delivery disabled, logging notification",
			zap.Strings("to", to),
			zap.String("subject", subject))
		return
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := smtp.SendMail(addr, nil, n.cfg.From, to, []byte(msg)); err != nil {
		zap.L().Warn("Failed to send notification mail",
			zap.Strings("to", to),
			zap.String("subject", subject),
			zap.Error(err))
	}
}
