// Package notify builds the user-facing notifications returned with mutation responses.
package notify

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notification is a toast the client shows after a mutation
type Notification struct {
	ID      uuid.UUID `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier creates notifications and logs them
type Notifier struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Notifier; a nil logger discards log output
func New(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger, now: time.Now}
}

// Success reports a completed mutation
func (n *Notifier) Success(message string, fields ...zap.Field) Notification {
	nt := n.build(LevelSuccess, message)
	n.logger.Info(message, append(fields, zap.Stringer("notification_id", nt.ID))...)
	return nt
}

// Failure reports a failed mutation. The underlying error text is appended verbatim.
func (n *Notifier) Failure(message string, err error, fields ...zap.Field) Notification {
	if err != nil {
		message = message + ": " + err.Error()
	}
	nt := n.build(LevelError, message)
	n.logger.Warn("mutation failed", append(fields,
		zap.String("message", message),
		zap.Stringer("notification_id", nt.ID))...)
	return nt
}

func (n *Notifier) build(level, message string) Notification {
	return Notification{
		ID:      uuid.New(),
		Level:   level,
		Message: message,
		At:      n.now().UTC(),
	}
}
