package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender is a dry-run transport that only logs what would be sent.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if msg.MessageID == "" {
		msg.MessageID = NewMessageID(msg.FromAddress)
	}
	s.logger.Info("dry run: email not sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("message_id", msg.MessageID),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return msg.MessageID, nil
}
