// Package animation は回転演出や紙吹雪のタイミングを管理する。
// 描画そのものはビュー側で行い、ここでは開始・終了のタイミングだけを扱う。
package animation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Driver は注入されたClockでアニメーションの寿命を管理する
type Driver struct {
	clock  clockwork.Clock
	active atomic.Int32
}

func NewDriver(clock clockwork.Clock) *Driver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Driver{clock: clock}
}

// Active は実行中のアニメーション数
func (d *Driver) Active() int {
	return int(d.active.Load())
}

// Animation completes exactly once: either its timer fires or Finish is called.
type Animation struct {
	once   sync.Once
	done   chan struct{}
	onDone func()

	mu    sync.Mutex
	timer clockwork.Timer

	release func()
}

func (d *Driver) newAnimation(onDone func()) *Animation {
	d.active.Add(1)
	var released atomic.Bool
	return &Animation{
		done:   make(chan struct{}),
		onDone: onDone,
		release: func() {
			if released.CompareAndSwap(false, true) {
				d.active.Add(-1)
			}
		},
	}
}

// Start は duration 経過後に onDone を呼ぶ
// ビューの transitionend 相当のイベントで Finish が先に呼ばれた場合はそちらが勝つ
func (d *Driver) Start(duration time.Duration, onDone func()) *Animation {
	a := d.newAnimation(onDone)
	if duration <= 0 {
		a.Finish()
		return a
	}

	a.mu.Lock()
	a.timer = d.clock.AfterFunc(duration, a.Finish)
	a.mu.Unlock()
	return a
}

// Burst は frames 回だけ onFrame を呼んで自動終了する
// バーストごとに独立しており、並行して複数走らせてよい
func (d *Driver) Burst(frames int, interval time.Duration, onFrame func(frame int)) *Animation {
	a := d.newAnimation(nil)
	if frames <= 0 || interval <= 0 {
		a.Finish()
		return a
	}

	ticker := d.clock.NewTicker(interval)
	go func() {
		defer a.Finish()
		defer a.release()
		defer ticker.Stop()

		for i := 0; i < frames; i++ {
			select {
			case <-ticker.Chan():
				if onFrame != nil {
					onFrame(i)
				}
			case <-a.done:
				return
			}
		}
	}()
	return a
}

// Finish ends the animation early. Safe to call repeatedly and concurrently.
func (a *Animation) Finish() {
	a.once.Do(func() {
		a.mu.Lock()
		if a.timer != nil {
			a.timer.Stop()
		}
		a.mu.Unlock()

		close(a.done)
		a.release()
		if a.onDone != nil {
			a.onDone()
		}
	})
}

func (a *Animation) Done() <-chan struct{} {
	return a.done
}

func (a *Animation) Finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}
