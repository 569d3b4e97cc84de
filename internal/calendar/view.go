package calendar

import (
	"fmt"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/presents"
	"github.com/ichi0g0y/present-calendar/internal/schedule"
	"github.com/ichi0g0y/present-calendar/internal/types"
)

const countdownPlaceholder = "—"

// View is everything the page needs to render one frame.
type View struct {
	State         types.PresentState `json:"state"`
	StatusLabel   string             `json:"status_label"`
	Title         string             `json:"title"`
	SubHeader     string             `json:"sub_header"`
	Hint          string             `json:"hint"`
	Countdown     string             `json:"countdown"`
	CanOpen       bool               `json:"can_open"`
	Current       *types.Present     `json:"current,omitempty"`
	ImagePath     string             `json:"image_path"`
	UnlockAt      *time.Time         `json:"unlock_at,omitempty"`
	Gallery       []GalleryItem      `json:"gallery"`
	OpenedCount   int                `json:"opened_count"`
	UnopenedCount int                `json:"unopened_count"`
	Total         int                `json:"total"`
	Featured      *GalleryItem       `json:"featured,omitempty"`
	Wheel         *WheelInfo         `json:"wheel,omitempty"`
	Error         string             `json:"error,omitempty"`
}

type GalleryItem struct {
	types.Present
	WheelLabel string `json:"wheel_label,omitempty"`
	Featured   bool   `json:"featured"`
}

// WheelInfo はルーレット付きプレゼントの表示情報
// Label は確定済みの結果（未確定なら空）
type WheelInfo struct {
	PresentID string              `json:"present_id"`
	Options   []types.WheelOption `json:"options"`
	Label     string              `json:"label,omitempty"`
	Spinning  bool                `json:"spinning"`
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(c.clock.Now())
}

func (c *Controller) viewLocked(now time.Time) View {
	if c.loadErr != nil {
		return View{
			State:       types.StateFailed,
			StatusLabel: countdownPlaceholder,
			Title:       "Failed to load presents",
			Hint:        "Check the file path and format.",
			Countdown:   countdownPlaceholder,
			ImagePath:   c.unopenedImage,
			Gallery:     []GalleryItem{},
			Error:       c.loadErr.Error(),
		}
	}
	if len(c.items) == 0 {
		return View{
			State:       types.StateEmpty,
			StatusLabel: countdownPlaceholder,
			Title:       "No presents configured",
			Hint:        "Add items to the presents file",
			Countdown:   countdownPlaceholder,
			ImagePath:   c.unopenedImage,
			Gallery:     []GalleryItem{},
		}
	}

	cur, _ := schedule.PickCurrent(c.items, c.state, now)
	p := *cur
	unlockAt := p.UnlockAt
	unopened := schedule.Unopened(c.items, c.state)

	v := View{
		State:         schedule.Classify(p, c.state, now),
		Title:         p.DisplayTitle(),
		SubHeader:     fmt.Sprintf("A new present unlocks over time. Unopened: %d", unopened),
		Current:       &p,
		ImagePath:     c.unopenedImage,
		UnlockAt:      &unlockAt,
		OpenedCount:   len(c.state.Revealed()),
		UnopenedCount: unopened,
		Total:         len(c.items),
	}

	switch v.State {
	case types.StateLocked:
		v.StatusLabel = "Locked"
		v.Hint = "Come back when the timer hits zero."
		v.Countdown = schedule.FormatCountdown(schedule.Remaining(p, now))
	case types.StateUnlocked:
		v.StatusLabel = "Unlocked"
		v.Hint = "It's time. Click to open!"
		v.Countdown = schedule.FormatCountdown(0)
		v.CanOpen = true
	case types.StateRevealed:
		v.StatusLabel = "Opened"
		v.Hint = "Enjoy 🎉"
		v.Countdown = schedule.FormatCountdown(0)
		v.ImagePath = p.ImagePath
	}

	featuredID, _ := c.state.Featured()
	gallery := schedule.Gallery(c.items, c.state, now)
	v.Gallery = make([]GalleryItem, 0, len(gallery))
	for _, g := range gallery {
		item := GalleryItem{Present: g, Featured: g.ID == featuredID}
		item.WheelLabel, _ = c.state.WheelOutcome(g.ID)
		v.Gallery = append(v.Gallery, item)
		if item.Featured {
			f := item
			v.Featured = &f
		}
	}

	if v.State != types.StateLocked && presents.OffersChoice(p) {
		info := &WheelInfo{PresentID: p.ID, Options: p.Options}
		info.Label, _ = c.state.WheelOutcome(p.ID)
		_, info.Spinning = c.inflight[p.ID]
		v.Wheel = info
	}

	return v
}
