package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/types"
)

// RevealedSet は開封済みIDの集合（読み取り専用で使う）
type RevealedSet interface {
	Has(id string) bool
}

// Set is a plain map implementation of RevealedSet.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sort returns a copy ordered by UnlockAt ascending. 同時刻は入力順を保つ。
func Sort(items []types.Present) []types.Present {
	sorted := make([]types.Present, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UnlockAt.Before(sorted[j].UnlockAt)
	})
	return sorted
}

// PickCurrent returns the present to show: the first unrevealed one in unlock order,
// or the last one when everything is revealed.
func PickCurrent(items []types.Present, revealed RevealedSet, now time.Time) (*types.Present, bool) {
	sorted := Sort(items)
	if len(sorted) == 0 {
		return nil, false
	}
	for i := range sorted {
		if !revealed.Has(sorted[i].ID) {
			return &sorted[i], true
		}
	}
	return &sorted[len(sorted)-1], true
}

// Classify returns locked / unlocked / revealed for p at now.
func Classify(p types.Present, revealed RevealedSet, now time.Time) types.PresentState {
	if now.Before(p.UnlockAt) {
		return types.StateLocked
	}
	if revealed.Has(p.ID) {
		return types.StateRevealed
	}
	return types.StateUnlocked
}

// IsUnlocked reports now >= unlockAt.
func IsUnlocked(p types.Present, now time.Time) bool {
	return !now.Before(p.UnlockAt)
}

// Remaining returns max(0, unlockAt-now).
func Remaining(p types.Present, now time.Time) time.Duration {
	d := p.UnlockAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// FormatCountdown は残り時間を "HH:MM:SS"（1日以上なら "Nd HH:MM:SS"）で返す。
// 負の値は0として扱う。
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	s := total % 60
	m := (total / 60) % 60
	h := (total / 3600) % 24
	days := total / 86400
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Gallery returns revealed and unlocked presents, newest unlock first.
func Gallery(items []types.Present, revealed RevealedSet, now time.Time) []types.Present {
	sorted := Sort(items)
	gallery := make([]types.Present, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		if IsUnlocked(p, now) && revealed.Has(p.ID) {
			gallery = append(gallery, p)
		}
	}
	return gallery
}

// Unopened counts presents not yet revealed.
func Unopened(items []types.Present, revealed RevealedSet) int {
	n := 0
	for _, p := range items {
		if !revealed.Has(p.ID) {
			n++
		}
	}
	return n
}

// LatestUnlocked returns the present with the greatest unlockAt <= now.
// 同時刻の場合は入力順で後ろのものを返す。
func LatestUnlocked(items []types.Present, now time.Time) (*types.Present, bool) {
	sorted := Sort(items)
	for i := len(sorted) - 1; i >= 0; i-- {
		if IsUnlocked(sorted[i], now) {
			return &sorted[i], true
		}
	}
	return nil, false
}
