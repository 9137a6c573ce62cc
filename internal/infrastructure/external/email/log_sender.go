package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/scanops/oms/internal/application/port"
)

// LogSender writes e-mails to the log instead of sending them.
// Used when email.provider is "log".
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new log-only sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

var _ port.EmailSender = (*LogSender)(nil)

// Send logs the message and always succeeds
func (s *LogSender) Send(ctx context.Context, msg port.EmailMessage) error {
	s.logger.Info("E-mail (log provider)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)))
	return nil
}
