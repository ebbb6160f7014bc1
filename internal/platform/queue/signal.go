package queue

import (
	"context"
	"time"
)

// JobSignal tells idle dispatchers that new work may be claimable.
type JobSignal interface {
	Notify(ctx context.Context, jobID string) error
	// Wait blocks until a notification arrives, timeout elapses or ctx is done.
	// It reports whether it was woken by a notification.
	Wait(ctx context.Context, timeout time.Duration) (bool, error)
}

// ChannelSignal is the single-process JobSignal. Notifications coalesce.
type ChannelSignal struct {
	ch chan struct{}
}

func NewChannelSignal() *ChannelSignal {
	return &ChannelSignal{ch: make(chan struct{}, 1)}
}

func (s *ChannelSignal) Notify(_ context.Context, _ string) error {
	select {
	case s.ch <- struct{}{}:
	default:
	}
	return nil
}

func (s *ChannelSignal) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ch:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

var (
	_ JobSignal = (*ChannelSignal)(nil)
	_ JobSignal = (*RedisSignal)(nil)
)
