package notify

import (
	"context"
	"errors"

	"dailyquest/internal/metrics"
	"dailyquest/internal/model"
	"dailyquest/internal/service"
)

type Channel struct {
	Name   string
	Pusher service.Pusher
}

// Dispatcher pushes a notification through every channel. A channel that
// cannot reach the user is skipped silently.
type Dispatcher struct {
	channels []Channel
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{channels: channels}
}

func (d *Dispatcher) Push(ctx context.Context, user *model.User, n *model.Notification) error {
	var errs []error

	for _, ch := range d.channels {
		err := ch.Pusher.Push(ctx, user, n)
		if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrUnsupportedProvider) {
			continue
		}

		metrics.RecordNotificationPush(ch.Name, err == nil)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
