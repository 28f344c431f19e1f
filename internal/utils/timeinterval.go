package utils

import (
	"time"
)

type IntervalTimer interface {
	Stop()
}

type intervalTimer struct {
	quit chan<- struct{}
}

func (t *intervalTimer) Stop() {
	close(t.quit)
}

// SetIntervalTimer runs function every duration until Stop is called.
func SetIntervalTimer(duration time.Duration, function func()) IntervalTimer {
	ticker := time.NewTicker(duration)
	quit := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				function()
			case <-quit:
				return
			}
		}
	}()
	return &intervalTimer{quit: quit}
}
