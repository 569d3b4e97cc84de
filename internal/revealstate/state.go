package revealstate

import (
	"encoding/json"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/schedule"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/types"
	"go.uber.org/zap"
)

const (
	KeyRevealed           = "opened_presents"
	KeyFeatured           = "featured_present"
	KeyWheelOutcomePrefix = "wheel_outcome:"
)

// WheelOutcomeKey returns the per-present outcome key.
func WheelOutcomeKey(id string) string {
	return KeyWheelOutcomePrefix + id
}

// State は開封済みID・注目プレゼント・ルーレット結果を保持する。
// 並行アクセスは想定しない（calendar.Controller が排他する）。
type State struct {
	kv       KV
	order    []string
	revealed map[string]struct{}
}

// Load reads the revealed set. 値がない・壊れている場合は空集合として扱い、エラーは返さない。
func Load(kv KV) *State {
	s := &State{kv: kv, revealed: make(map[string]struct{})}
	for _, id := range loadRevealedIDs(kv) {
		if _, dup := s.revealed[id]; dup || id == "" {
			continue
		}
		s.revealed[id] = struct{}{}
		s.order = append(s.order, id)
	}
	return s
}

func loadRevealedIDs(kv KV) []string {
	raw, ok := kv.Get(KeyRevealed)
	if !ok || raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		logger.Warn("Ignoring corrupt revealed set", zap.Error(err))
		return nil
	}
	return ids
}

func (s *State) persistRevealed() {
	data, err := json.Marshal(s.Revealed())
	if err != nil {
		logger.Warn("Failed to marshal revealed set", zap.Error(err))
		return
	}
	if err := s.kv.Set(KeyRevealed, string(data)); err != nil {
		logger.Warn("Failed to persist revealed set", zap.Error(err))
	}
}

// Has implements schedule.RevealedSet.
func (s *State) Has(id string) bool {
	_, ok := s.revealed[id]
	return ok
}

func (s *State) IsRevealed(id string) bool {
	return s.Has(id)
}

// Revealed returns revealed ids in reveal order.
func (s *State) Revealed() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *State) add(id string) bool {
	if id == "" || s.Has(id) {
		return false
	}
	s.revealed[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *State) remove(id string) {
	delete(s.revealed, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Reveal adds id and persists. 既に開封済みなら何もしない。
func (s *State) Reveal(id string) bool {
	if !s.add(id) {
		return false
	}
	s.persistRevealed()
	return true
}

// UnrevealMostRecent removes the revealed present with the greatest unlockAt.
// ルーレット結果と注目プレゼントはそのまま残す（後で同じ結果で再表示できる）。
func (s *State) UnrevealMostRecent(items []types.Present) (string, bool) {
	sorted := schedule.Sort(items)
	for i := len(sorted) - 1; i >= 0; i-- {
		id := sorted[i].ID
		if s.Has(id) {
			s.remove(id)
			s.persistRevealed()
			return id, true
		}
	}
	return "", false
}

// BulkRevealAllButLatestUnlocked reveals every unlocked present except the latest one,
// persisting once. Returns the number of newly revealed presents.
func (s *State) BulkRevealAllButLatestUnlocked(items []types.Present, now time.Time) int {
	latest, ok := schedule.LatestUnlocked(items, now)
	if !ok {
		return 0
	}

	added := 0
	for _, p := range schedule.Sort(items) {
		if p.ID == latest.ID || !schedule.IsUnlocked(p, now) {
			continue
		}
		if s.add(p.ID) {
			added++
		}
	}
	if added > 0 {
		s.persistRevealed()
	}
	return added
}

// RecordWheelOutcome stores label unless an outcome already exists.
// 戻り値は保存済みのラベルと、今回書き込んだかどうか。
func (s *State) RecordWheelOutcome(id, label string) (string, bool) {
	if existing, ok := s.WheelOutcome(id); ok {
		return existing, false
	}
	if err := s.kv.Set(WheelOutcomeKey(id), label); err != nil {
		logger.Warn("Failed to persist wheel outcome", zap.String("present_id", id), zap.Error(err))
	}
	return label, true
}

// WheelOutcome returns the stored label for id.
func (s *State) WheelOutcome(id string) (string, bool) {
	label, ok := s.kv.Get(WheelOutcomeKey(id))
	if !ok || label == "" {
		return "", false
	}
	return label, true
}

// ClearWheelOutcome explicitly forgets the outcome for id.
func (s *State) ClearWheelOutcome(id string) {
	if err := s.kv.Remove(WheelOutcomeKey(id)); err != nil {
		logger.Warn("Failed to clear wheel outcome", zap.String("present_id", id), zap.Error(err))
	}
}

// SetFeatured sets the featured id; "" clears it.
func (s *State) SetFeatured(id string) {
	var err error
	if id == "" {
		err = s.kv.Remove(KeyFeatured)
	} else {
		err = s.kv.Set(KeyFeatured, id)
	}
	if err != nil {
		logger.Warn("Failed to persist featured present", zap.String("present_id", id), zap.Error(err))
	}
}

// Featured returns the featured id, if any.
func (s *State) Featured() (string, bool) {
	id, ok := s.kv.Get(KeyFeatured)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
