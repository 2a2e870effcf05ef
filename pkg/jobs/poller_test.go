package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollerRunsOnInterval(t *testing.T) {
	var runs int32
	p := NewPoller("test", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, PollerConfig{Interval: 5 * time.Millisecond})

	p.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs))
}

func TestPollerTriggerRunsImmediately(t *testing.T) {
	done := make(chan struct{}, 1)
	p := NewPoller("test", func(context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}, PollerConfig{Interval: time.Hour})

	p.Start(context.Background())
	defer p.Stop()
	p.Trigger()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("trigger did not run task")
	}
}

func TestPollerSurvivesTaskErrors(t *testing.T) {
	var runs int32
	p := NewPoller("test", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("boom")
	}, PollerConfig{Interval: 5 * time.Millisecond})

	p.Start(context.Background())
	defer p.Stop()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPollerStopWithoutStart(t *testing.T) {
	p := NewPoller("idle", func(context.Context) error { return nil }, PollerConfig{})
	assert.NotPanics(t, p.Stop)
}
