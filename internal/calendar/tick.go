package calendar

import (
	"context"
	"reflect"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type tickHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *tickHandle) stop() {
	h.cancel()
	<-h.done
}

// StartTick re-evaluates the view every interval and publishes it when it changed.
// 既存のティックがあれば停止してから置き換える（同時に動くのは常に1つ）。
func (c *Controller) StartTick(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}

	tickCtx, cancel := context.WithCancel(ctx)
	h := &tickHandle{cancel: cancel, done: make(chan struct{})}
	ticker := c.clock.NewTicker(interval)

	c.replaceTick(h)
	go c.tickLoop(tickCtx, ticker, h.done)

	logger.Debug("Tick started", zap.Duration("interval", interval))
}

// StopTick stops the active tick, if any.
func (c *Controller) StopTick() {
	c.tickMu.Lock()
	h := c.tick
	c.tick = nil
	c.tickMu.Unlock()

	if h != nil {
		h.stop()
		logger.Debug("Tick stopped")
	}
}

// TickActive reports whether a tick loop is running.
func (c *Controller) TickActive() bool {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	return c.tick != nil
}

func (c *Controller) replaceTick(h *tickHandle) {
	c.tickMu.Lock()
	prev := c.tick
	c.tick = h
	c.tickMu.Unlock()

	if prev != nil {
		prev.stop()
		logger.Debug("Replaced existing tick")
	}
}

func (c *Controller) tickLoop(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Evaluate()
		}
	}
}

// Evaluate publishes the view if it differs from the last published one.
// 古いスナップショットが新しい配信を上書きしないよう、取得と比較と配信を viewMu 内で行う
func (c *Controller) Evaluate() bool {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	v := c.Snapshot()
	if c.lastView != nil && reflect.DeepEqual(*c.lastView, v) {
		return false
	}
	c.lastView = &v
	c.emit(Event{Type: EventState, Data: v})
	return true
}
