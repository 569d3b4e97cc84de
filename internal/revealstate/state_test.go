package revealstate

import (
	"errors"
	"testing"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/schedule"
	"github.com/ichi0g0y/present-calendar/internal/types"
)

var t0 = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func testPresents() []types.Present {
	return []types.Present{
		{ID: "d3", UnlockAt: t0.Add(3 * time.Hour)},
		{ID: "d1", UnlockAt: t0.Add(1 * time.Hour)},
		{ID: "d0", UnlockAt: t0},
		{ID: "d2", UnlockAt: t0.Add(2 * time.Hour)},
	}
}

// brokenKV は書き込みが常に失敗するストア
type brokenKV struct {
	*MemoryKV
}

func (b brokenKV) Set(key, value string) error { return errors.New("disk full") }
func (b brokenKV) Remove(key string) error     { return errors.New("disk full") }

func TestLoad_AbsentAndCorrupt(t *testing.T) {
	kv := NewMemoryKV()
	if s := Load(kv); len(s.Revealed()) != 0 {
		t.Fatalf("absent key should load empty set")
	}

	for _, raw := range []string{"{not json", `{"a":1}`, `[1,2]`, "null"} {
		_ = kv.Set(KeyRevealed, raw)
		if s := Load(kv); len(s.Revealed()) != 0 {
			t.Fatalf("corrupt value %q should load empty set, got=%v", raw, s.Revealed())
		}
	}

	_ = kv.Set(KeyRevealed, `["a","b","a",""]`)
	s := Load(kv)
	if got := s.Revealed(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected revealed set: %v", got)
	}
}

func TestReveal_IdempotentAndPersisted(t *testing.T) {
	kv := NewMemoryKV()
	s := Load(kv)

	if !s.Reveal("d0") {
		t.Fatalf("first reveal should report change")
	}
	if s.Reveal("d0") {
		t.Fatalf("second reveal should be a no-op")
	}
	if got := s.Revealed(); len(got) != 1 {
		t.Fatalf("revealed set should not contain duplicates: %v", got)
	}

	raw, _ := kv.Get(KeyRevealed)
	if raw != `["d0"]` {
		t.Fatalf("unexpected persisted value: got=%q want=%q", raw, `["d0"]`)
	}

	reloaded := Load(kv)
	if !reloaded.IsRevealed("d0") {
		t.Fatalf("reveal should survive reload")
	}
}

func TestUnrevealMostRecent(t *testing.T) {
	kv := NewMemoryKV()
	s := Load(kv)
	items := testPresents()

	if _, ok := s.UnrevealMostRecent(items); ok {
		t.Fatalf("unreveal on empty set should be a no-op")
	}

	s.Reveal("d2")
	s.Reveal("d0")
	s.Reveal("d1")
	s.SetFeatured("d2")
	s.RecordWheelOutcome("d2", "Red")

	id, ok := s.UnrevealMostRecent(items)
	if !ok || id != "d2" {
		t.Fatalf("unexpected unrevealed id: got=%q want=%q", id, "d2")
	}
	if s.Has("d2") {
		t.Fatalf("d2 should no longer be revealed")
	}

	// 現状の挙動: ルーレット結果と注目プレゼントは残る
	if label, ok := s.WheelOutcome("d2"); !ok || label != "Red" {
		t.Fatalf("wheel outcome should be kept after unreveal: got=%q", label)
	}
	if f, ok := s.Featured(); !ok || f != "d2" {
		t.Fatalf("featured should be kept after unreveal: got=%q", f)
	}

	if !Load(kv).Has("d1") || Load(kv).Has("d2") {
		t.Fatalf("unreveal was not persisted")
	}
}

func TestBulkRevealAllButLatestUnlocked(t *testing.T) {
	items := testPresents()

	t.Run("some unlocked", func(t *testing.T) {
		s := Load(NewMemoryKV())
		now := t0.Add(150 * time.Minute) // d0,d1,d2 unlocked

		if n := s.BulkRevealAllButLatestUnlocked(items, now); n != 2 {
			t.Fatalf("unexpected reveal count: got=%d want=2", n)
		}
		if !s.Has("d0") || !s.Has("d1") || s.Has("d2") || s.Has("d3") {
			t.Fatalf("unexpected revealed set: %v", s.Revealed())
		}

		cur, ok := schedule.PickCurrent(items, s, now)
		if !ok || cur.ID != "d2" {
			t.Fatalf("current should be latest unlocked: %+v", cur)
		}
		if state := schedule.Classify(*cur, s, now); state != types.StateUnlocked {
			t.Fatalf("unexpected state: %s", state)
		}
	})

	t.Run("nothing unlocked", func(t *testing.T) {
		s := Load(NewMemoryKV())
		now := t0.Add(-time.Minute)

		if n := s.BulkRevealAllButLatestUnlocked(items, now); n != 0 {
			t.Fatalf("unexpected reveal count: got=%d want=0", n)
		}
		cur, ok := schedule.PickCurrent(items, s, now)
		if !ok || cur.ID != "d0" {
			t.Fatalf("current should be next locked present: %+v", cur)
		}
		if state := schedule.Classify(*cur, s, now); state != types.StateLocked {
			t.Fatalf("unexpected state: %s", state)
		}
	})
}

func TestRecordWheelOutcome_FirstWriteWins(t *testing.T) {
	s := Load(NewMemoryKV())

	label, recorded := s.RecordWheelOutcome("d0", "L1")
	if !recorded || label != "L1" {
		t.Fatalf("first record: got=(%q,%v)", label, recorded)
	}
	label, recorded = s.RecordWheelOutcome("d0", "L2")
	if recorded || label != "L1" {
		t.Fatalf("second record should keep L1: got=(%q,%v)", label, recorded)
	}
	if got, _ := s.WheelOutcome("d0"); got != "L1" {
		t.Fatalf("stored outcome mismatch: got=%q want=%q", got, "L1")
	}

	s.ClearWheelOutcome("d0")
	if _, ok := s.WheelOutcome("d0"); ok {
		t.Fatalf("outcome should be cleared")
	}
	if label, recorded := s.RecordWheelOutcome("d0", "L2"); !recorded || label != "L2" {
		t.Fatalf("record after clear: got=(%q,%v)", label, recorded)
	}
}

func TestFeatured(t *testing.T) {
	s := Load(NewMemoryKV())
	if _, ok := s.Featured(); ok {
		t.Fatalf("featured should start empty")
	}
	s.SetFeatured("d1")
	if id, ok := s.Featured(); !ok || id != "d1" {
		t.Fatalf("unexpected featured: %q", id)
	}
	s.SetFeatured("")
	if _, ok := s.Featured(); ok {
		t.Fatalf("featured should be cleared")
	}
}

func TestPersistFailuresAreSwallowed(t *testing.T) {
	s := Load(brokenKV{NewMemoryKV()})

	if !s.Reveal("d0") {
		t.Fatalf("reveal should still update in-memory state")
	}
	if !s.Has("d0") {
		t.Fatalf("in-memory state should contain d0")
	}
	s.SetFeatured("d0")
	s.RecordWheelOutcome("d0", "Red")
	s.ClearWheelOutcome("d0")
}
