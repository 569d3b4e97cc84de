package calendar

import (
	"sync"

	"github.com/ichi0g0y/present-calendar/internal/animation"
	"github.com/ichi0g0y/present-calendar/internal/presents"
	"github.com/ichi0g0y/present-calendar/internal/schedule"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/wheel"
	"go.uber.org/zap"
)

// spinFlight is one spin between start and commit.
type spinFlight struct {
	plan wheel.SpinPlan
	once sync.Once
	anim *animation.Animation // c.mu で保護
}

// Spin is the plan handed to the view.
// Recorded が true の場合は結果確定済みで、回転演出は省略してよい。
type Spin struct {
	wheel.SpinPlan
	Recorded bool `json:"recorded"`
}

// Spin starts the wheel for id. 確定済みの結果があればそれを返し、ラベルは変わらない。
// 回転中に再度呼ばれた場合は同じプランを返す。
func (c *Controller) Spin(id string) (Spin, error) {
	c.mu.Lock()
	if err := c.availableLocked(); err != nil {
		c.mu.Unlock()
		return Spin{}, err
	}
	p, ok := c.findLocked(id)
	if !ok {
		c.mu.Unlock()
		return Spin{}, ErrNotFound
	}
	if !schedule.IsUnlocked(p, c.clock.Now()) {
		c.mu.Unlock()
		return Spin{}, ErrNotUnlocked
	}
	if !presents.OffersChoice(p) {
		c.mu.Unlock()
		return Spin{}, ErrNoChoice
	}
	if f, ok := c.inflight[id]; ok {
		plan := f.plan
		c.mu.Unlock()
		return Spin{SpinPlan: plan}, nil
	}

	plan, err := c.selector.Plan(p, c.spinDuration)
	if err != nil {
		c.mu.Unlock()
		return Spin{}, ErrNoChoice
	}
	if label, ok := c.state.WheelOutcome(id); ok {
		c.mu.Unlock()
		return Spin{SpinPlan: alignPlan(*plan, label), Recorded: true}, nil
	}

	f := &spinFlight{plan: *plan}
	c.inflight[id] = f
	c.mu.Unlock()

	logger.Info("Wheel spin started",
		zap.String("present_id", id),
		zap.Int("index", plan.Index),
		zap.Int("extra_turns", plan.ExtraTurns),
		zap.Duration("duration", plan.Duration))
	c.emit(Event{Type: EventWheelSpin, Data: f.plan})

	anim := c.driver.Start(plan.Duration, func() { c.commitSpin(f) })
	c.mu.Lock()
	f.anim = anim
	c.mu.Unlock()

	c.publishState()
	return Spin{SpinPlan: f.plan}, nil
}

// SettleSpin ends the animation early (view transition end). 何度呼んでもよい。
func (c *Controller) SettleSpin(id string) (string, error) {
	c.mu.Lock()
	f, ok := c.inflight[id]
	var anim *animation.Animation
	if ok {
		anim = f.anim
	}
	c.mu.Unlock()

	if ok {
		c.commitSpin(f)
		if anim != nil {
			anim.Finish()
		}
	}

	c.mu.Lock()
	label, recorded := c.state.WheelOutcome(id)
	c.mu.Unlock()
	if !recorded {
		return "", ErrNotSpinning
	}
	return label, nil
}

// ClearWheelOutcome forgets the committed label so the present can be spun again.
func (c *Controller) ClearWheelOutcome(id string) error {
	c.mu.Lock()
	if _, ok := c.findLocked(id); !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	c.state.ClearWheelOutcome(id)
	c.mu.Unlock()

	logger.Info("Wheel outcome cleared", zap.String("present_id", id))
	c.publishState()
	return nil
}

func (c *Controller) commitSpin(f *spinFlight) {
	f.once.Do(func() {
		id := f.plan.PresentID

		c.mu.Lock()
		label, wrote := c.state.RecordWheelOutcome(id, f.plan.Label)
		delete(c.inflight, id)
		c.mu.Unlock()

		if wrote {
			logger.Info("Wheel outcome committed", zap.String("present_id", id), zap.String("label", label))
			if c.onSpinCommit != nil {
				c.onSpinCommit(f.plan, c.clock.Now())
			}
		}

		c.emit(Event{Type: EventWheelSettled, Data: WheelSettledData{
			PresentID: id,
			Label:     label,
			Index:     f.plan.Index,
		}})
		c.publishState()
	})
}

// alignPlan points the plan at an already recorded label.
// ラベルが現在の選択肢にない場合は角度はそのままでラベルだけ差し替える。
func alignPlan(plan wheel.SpinPlan, label string) wheel.SpinPlan {
	plan.Label = label
	n := len(plan.Options)
	for i, o := range plan.Options {
		if o.Label != label {
			continue
		}
		plan.Index = i
		plan.Option = o
		plan.TargetAngle = wheel.TargetAngle(i, n)
		plan.Rotation = wheel.SpinRotation(i, n, plan.ExtraTurns)
		break
	}
	return plan
}
