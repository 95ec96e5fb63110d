package watcher

import (
	"context"
	"time"
)

type wakeupEvent struct {
	timestamp time.Time
}

func (e wakeupEvent) Timestamp() time.Time { return e.timestamp }

// alarmClock fires once immediately and then on every interval until stopped.
type alarmClock struct {
	interval time.Duration
	cancel   func()
	C        chan wakeupEvent
}

func newAlarmClock(interval time.Duration) *alarmClock {
	return &alarmClock{
		interval: interval,
		C:        make(chan wakeupEvent),
	}
}

func (a *alarmClock) Start(ctx context.Context) <-chan wakeupEvent {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		defer close(a.C)

		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		if !a.emit(ctx, wakeupEvent{time.Now()}) {
			return
		}
		for {
			select {
			case t := <-ticker.C:
				if !a.emit(ctx, wakeupEvent{t}) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return a.C
}

func (a *alarmClock) emit(ctx context.Context, evt wakeupEvent) bool {
	select {
	case a.C <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *alarmClock) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}
