// notify/log.go
package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport writes notifications to the logger instead of sending them.
// It is the development default.
type LogTransport struct {
	Logger *zap.Logger
}

// Send logs msg at info level; the HTML body only at debug.
func (t LogTransport) Send(_ context.Context, msg Email) error {
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification (log transport)",
		zap.Strings("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTMLBody)),
	)
	logger.Debug("notification body", zap.String("text", msg.TextBody))
	return nil
}
