package wheel

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/types"
)

// DefaultSeed is the process-wide seed mixed into every seed string.
const DefaultSeed = "present-calendar/v1"

const (
	minOptions    = 2
	minExtraTurns = 3
	turnsSpread   = 3

	seedDelimiter  = "|"
	labelDelimiter = ","
)

var ErrTooFewOptions = errors.New("wheel needs at least two options")

// Selector は決定論的なルーレット抽選を行う。
// 同じ (id, unlockAt, labels) なら端末やセッションに関係なく同じ結果になる。
type Selector struct {
	Seed string
}

func NewSelector(seed string) *Selector {
	if strings.TrimSpace(seed) == "" {
		seed = DefaultSeed
	}
	return &Selector{Seed: seed}
}

// IndexSeed builds the seed string hashed by SelectIndex.
func (s *Selector) IndexSeed(itemID, unlockAt string, labels []string) string {
	return strings.Join([]string{s.Seed, itemID, unlockAt, strings.Join(labels, labelDelimiter)}, seedDelimiter)
}

// TurnsSeed builds the seed string hashed by SelectExtraTurns.
func (s *Selector) TurnsSeed(itemID, unlockAt string, labelCount int) string {
	return strings.Join([]string{s.Seed, itemID, unlockAt, "turns", strconv.Itoa(labelCount)}, seedDelimiter)
}

// SelectIndex returns an index in [0, len(labels)).
func (s *Selector) SelectIndex(itemID, unlockAt string, labels []string) (int, error) {
	if len(labels) < minOptions {
		return 0, ErrTooFewOptions
	}
	h := Hash(s.IndexSeed(itemID, unlockAt, labels))
	return int(h % uint32(len(labels))), nil
}

// SelectExtraTurns returns 3, 4 or 5. アニメーション専用で、確定インデックスには影響しない。
func (s *Selector) SelectExtraTurns(itemID, unlockAt string, labelCount int) (int, error) {
	if labelCount < minOptions {
		return 0, ErrTooFewOptions
	}
	h := Hash(s.TurnsSeed(itemID, unlockAt, labelCount))
	return minExtraTurns + int(h%turnsSpread), nil
}

// SpinPlan はルーレット1回分の結果と描画用パラメータ
type SpinPlan struct {
	PresentID   string              `json:"present_id"`
	Index       int                 `json:"index"`
	Label       string              `json:"label"`
	Option      types.WheelOption   `json:"option"`
	Options     []types.WheelOption `json:"options"`
	ExtraTurns  int                 `json:"extra_turns"`
	SliceAngle  float64             `json:"slice_angle"`
	TargetAngle float64             `json:"target_angle"`
	Rotation    float64             `json:"rotation"`
	DurationMS  int64               `json:"duration_ms"`
	Duration    time.Duration       `json:"-"`
}

// Plan computes the full spin for a present.
func (s *Selector) Plan(p types.Present, duration time.Duration) (*SpinPlan, error) {
	labels := p.Labels()
	index, err := s.SelectIndex(p.ID, p.UnlockAtText, labels)
	if err != nil {
		return nil, err
	}
	turns, err := s.SelectExtraTurns(p.ID, p.UnlockAtText, len(labels))
	if err != nil {
		return nil, err
	}

	n := len(labels)
	return &SpinPlan{
		PresentID:   p.ID,
		Index:       index,
		Label:       labels[index],
		Option:      p.Options[index],
		Options:     p.Options,
		ExtraTurns:  turns,
		SliceAngle:  SliceAngle(n),
		TargetAngle: TargetAngle(index, n),
		Rotation:    SpinRotation(index, n, turns),
		DurationMS:  duration.Milliseconds(),
		Duration:    duration,
	}, nil
}
