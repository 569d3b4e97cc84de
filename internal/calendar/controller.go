// Package calendar はアドベントカレンダーのアプリケーション状態を一元管理する。
// HTTP ハンドラとティック用ゴルーチンはすべて Controller を経由して状態を読み書きする。
package calendar

import (
	"errors"
	"sync"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/animation"
	"github.com/ichi0g0y/present-calendar/internal/revealstate"
	"github.com/ichi0g0y/present-calendar/internal/schedule"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/types"
	"github.com/ichi0g0y/present-calendar/internal/wheel"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultTickInterval     = 250 * time.Millisecond
	DefaultSpinDuration     = 4500 * time.Millisecond
	DefaultConfettiFrames   = 140
	DefaultConfettiInterval = 16 * time.Millisecond
	DefaultUnopenedImage    = "images/unopened.png"
)

var (
	ErrUnavailable     = errors.New("presents are not available")
	ErrNotFound        = errors.New("present not found")
	ErrNotUnlocked     = errors.New("present is not unlocked yet")
	ErrAlreadyRevealed = errors.New("present is already revealed")
	ErrNothingRevealed = errors.New("no revealed present")
	ErrNoChoice        = errors.New("present does not offer a wheel")
	ErrNotSpinning     = errors.New("no spin in progress")
)

// SpinCommit is called once per committed wheel outcome.
type SpinCommit func(plan wheel.SpinPlan, at time.Time)

type Config struct {
	Presents []types.Present
	// LoadErr が非nilなら failed 状態で起動する
	LoadErr error
	KV      revealstate.KV
	Seed    string
	Clock   clockwork.Clock

	SpinDuration     time.Duration
	ConfettiFrames   int
	ConfettiInterval time.Duration
	UnopenedImage    string

	OnSpinCommit SpinCommit
}

type Controller struct {
	mu       sync.Mutex
	items    []types.Present
	loadErr  error
	state    *revealstate.State
	selector *wheel.Selector
	clock    clockwork.Clock
	driver   *animation.Driver
	inflight map[string]*spinFlight

	spinDuration     time.Duration
	confettiFrames   int
	confettiInterval time.Duration
	unopenedImage    string
	onSpinCommit     SpinCommit

	listenersMu sync.RWMutex
	listeners   []func(Event)

	tickMu sync.Mutex
	tick   *tickHandle

	// viewMu は lastView を守り、スナップショット取得から state 配信までを直列化する
	viewMu   sync.Mutex
	lastView *View
}

func New(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	kv := cfg.KV
	if kv == nil {
		kv = revealstate.NewMemoryKV()
	}

	c := &Controller{
		items:            schedule.Sort(cfg.Presents),
		loadErr:          cfg.LoadErr,
		state:            revealstate.Load(kv),
		selector:         wheel.NewSelector(cfg.Seed),
		clock:            clock,
		driver:           animation.NewDriver(clock),
		inflight:         make(map[string]*spinFlight),
		spinDuration:     cfg.SpinDuration,
		confettiFrames:   cfg.ConfettiFrames,
		confettiInterval: cfg.ConfettiInterval,
		unopenedImage:    cfg.UnopenedImage,
		onSpinCommit:     cfg.OnSpinCommit,
	}
	if c.spinDuration <= 0 {
		c.spinDuration = DefaultSpinDuration
	}
	if c.confettiFrames <= 0 {
		c.confettiFrames = DefaultConfettiFrames
	}
	if c.confettiInterval <= 0 {
		c.confettiInterval = DefaultConfettiInterval
	}
	if c.unopenedImage == "" {
		c.unopenedImage = DefaultUnopenedImage
	}

	logger.Info("Calendar controller initialized",
		zap.Int("presents", len(c.items)),
		zap.Int("revealed", len(c.state.Revealed())),
		zap.Bool("load_failed", c.loadErr != nil))
	return c
}

// Replace swaps the present collection (reload). Reveal state is kept.
func (c *Controller) Replace(items []types.Present, loadErr error) {
	c.mu.Lock()
	c.items = schedule.Sort(items)
	c.loadErr = loadErr
	c.mu.Unlock()

	logger.Info("Presents replaced", zap.Int("presents", len(items)), zap.Bool("load_failed", loadErr != nil))
	c.publishState()
}

func (c *Controller) Presents() []types.Present {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Present, len(c.items))
	copy(out, c.items)
	return out
}

// Driver exposes the animation driver (active count for status).
func (c *Controller) Driver() *animation.Driver {
	return c.driver
}

func (c *Controller) availableLocked() error {
	if c.loadErr != nil || len(c.items) == 0 {
		return ErrUnavailable
	}
	return nil
}

func (c *Controller) findLocked(id string) (types.Present, bool) {
	for _, p := range c.items {
		if p.ID == id {
			return p, true
		}
	}
	return types.Present{}, false
}

// Open reveals the current present. 解放前なら ErrNotUnlocked。
func (c *Controller) Open() (types.Present, error) {
	c.mu.Lock()
	if err := c.availableLocked(); err != nil {
		c.mu.Unlock()
		return types.Present{}, err
	}
	now := c.clock.Now()
	cur, _ := schedule.PickCurrent(c.items, c.state, now)
	p := *cur
	switch schedule.Classify(p, c.state, now) {
	case types.StateLocked:
		c.mu.Unlock()
		return p, ErrNotUnlocked
	case types.StateRevealed:
		c.mu.Unlock()
		return p, ErrAlreadyRevealed
	}
	c.state.Reveal(p.ID)
	c.mu.Unlock()

	logger.Info("Present opened", zap.String("present_id", p.ID))
	c.celebrate(p.ID)
	c.publishState()
	return p, nil
}

// RevealID reveals a specific unlocked present. 開封済みなら何もしない。
func (c *Controller) RevealID(id string) (types.Present, error) {
	c.mu.Lock()
	if err := c.availableLocked(); err != nil {
		c.mu.Unlock()
		return types.Present{}, err
	}
	p, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()
		return types.Present{}, ErrNotFound
	}
	if !schedule.IsUnlocked(p, c.clock.Now()) {
		c.mu.Unlock()
		return p, ErrNotUnlocked
	}
	added := c.state.Reveal(id)
	c.mu.Unlock()

	if added {
		logger.Info("Present revealed", zap.String("present_id", id))
		c.celebrate(id)
		c.publishState()
	}
	return p, nil
}

// Unreveal hides the most recently unlocked revealed present again.
func (c *Controller) Unreveal() (string, error) {
	c.mu.Lock()
	if err := c.availableLocked(); err != nil {
		c.mu.Unlock()
		return "", err
	}
	id, ok := c.state.UnrevealMostRecent(c.items)
	c.mu.Unlock()

	if !ok {
		return "", ErrNothingRevealed
	}
	logger.Info("Present unrevealed", zap.String("present_id", id))
	c.publishState()
	return id, nil
}

// RevealAllButLatest reveals every unlocked present except the newest one.
func (c *Controller) RevealAllButLatest() (int, error) {
	c.mu.Lock()
	if err := c.availableLocked(); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	n := c.state.BulkRevealAllButLatestUnlocked(c.items, c.clock.Now())
	c.mu.Unlock()

	logger.Info("Bulk reveal", zap.Int("revealed", n))
	if n > 0 {
		c.publishState()
	}
	return n, nil
}

// SetFeatured marks id as featured; "" clears.
func (c *Controller) SetFeatured(id string) error {
	c.mu.Lock()
	if id != "" {
		if _, ok := c.findLocked(id); !ok {
			c.mu.Unlock()
			return ErrNotFound
		}
	}
	c.state.SetFeatured(id)
	c.mu.Unlock()

	c.publishState()
	return nil
}

func (c *Controller) celebrate(id string) {
	c.driver.Burst(c.confettiFrames, c.confettiInterval, nil)
	c.emit(Event{Type: EventConfetti, Data: ConfettiData{PresentID: id, Frames: c.confettiFrames}})
}

// publishState は現在のビューを配信し、ティックの差分判定にも反映する
// c.mu を保持したまま呼ばないこと
func (c *Controller) publishState() {
	c.viewMu.Lock()
	defer c.viewMu.Unlock()

	v := c.Snapshot()
	c.lastView = &v
	c.emit(Event{Type: EventState, Data: v})
}
