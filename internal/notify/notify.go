package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"trainer-scheduler/internal/scheduling"
)

// Multi delivers a notification through every notifier and joins their errors.
type Multi []scheduling.Notifier

func (m Multi) Notify(ctx context.Context, n scheduling.Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier only logs. Used when no delivery channel is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n scheduling.Notification) error {
	l.Logger.Info("booking notification",
		zap.String("kind", string(n.Kind)),
		zap.String("service", n.ServiceLabel),
		zap.String("client", n.ClientEmail),
		zap.String("start", n.Start.Format(scheduling.OffsetLayout)),
		zap.String("event_id", n.EventID),
	)
	return nil
}
