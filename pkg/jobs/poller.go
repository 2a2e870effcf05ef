package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the unit of work a Poller runs on every tick.
type Task func(context.Context) error

// PollerConfig configures ticking behaviour.
type PollerConfig struct {
	Interval time.Duration
	Logger   *zap.Logger
}

// Poller runs a task on a fixed interval in a single goroutine. Trigger
// requests an extra run without waiting for the next tick.
type Poller struct {
	name     string
	task     Task
	interval time.Duration
	logger   *zap.Logger

	nudge   chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewPoller builds a poller for task.
func NewPoller(name string, task Task, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Poller{
		name:     name,
		task:     task,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		nudge:    make(chan struct{}, 1),
	}
}

// Start launches the polling goroutine. Safe to call once.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.loop(runCtx)
	p.started = true
	p.logger.Sugar().Infow("poller started", "poller", p.name, "interval", p.interval.String())
}

// Stop cancels the loop and waits for an in-flight run to return.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.started = false
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Sugar().Infow("poller stopped", "poller", p.name)
}

// Trigger schedules an immediate run; extra calls coalesce while one is pending.
func (p *Poller) Trigger() {
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.nudge:
		}
		if err := p.task(ctx); err != nil && ctx.Err() == nil {
			p.logger.Sugar().Warnw("poll failed", "poller", p.name, "error", err)
		}
	}
}
