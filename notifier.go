package accounts

import (
	"context"
)

// LogNotifier is a development Notifier that writes the verification
// payload to the logger instead of an outbound transport.
type LogNotifier struct {
	Logger Logger
}

// SendVerification implements Notifier.
func (n LogNotifier) SendVerification(ctx context.Context, msg Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = defLogger{}
	}

	logger.Info("verification notification email=%s name=%s token=%s", msg.Email, msg.Name, msg.Token)

	return nil
}
