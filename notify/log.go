package notify

import (
	"context"

	goIdentity "github.com/MrEthical07/goIdentity"
	"go.uber.org/zap"
)

// LogSender logs every notification, including the code, at Info level.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a sender writing to logger under the "notify" name.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.Named("notify")}
}

// SendCode implements goIdentity.NotificationSender.
func (s *LogSender) SendCode(_ context.Context, n goIdentity.Notification) error {
	s.logger.Info("code issued",
		zap.String("channel", string(n.Channel)),
		zap.String("address", n.Address),
		zap.String("purpose", string(n.Purpose)),
		zap.String("user_id", n.UserID),
		zap.String("code", n.Code),
	)
	return nil
}
