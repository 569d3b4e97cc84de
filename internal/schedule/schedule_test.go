package schedule

import (
	"testing"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/types"
)

var t0 = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func present(id string, unlock time.Time) types.Present {
	return types.Present{ID: id, UnlockAt: unlock, UnlockAtText: unlock.Format(time.RFC3339), ImagePath: id + ".png"}
}

func ids(ps []types.Present) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSort_StableByUnlockAt(t *testing.T) {
	items := []types.Present{
		present("c", t0.Add(2*time.Hour)),
		present("a", t0),
		present("b1", t0.Add(time.Hour)),
		present("b2", t0.Add(time.Hour)),
	}

	got := ids(Sort(items))
	want := []string{"a", "b1", "b2", "c"}
	if !equalIDs(got, want) {
		t.Fatalf("unexpected order: got=%v want=%v", got, want)
	}
	// 元のスライスは変更しない
	if items[0].ID != "c" {
		t.Fatalf("Sort must not mutate input")
	}
}

func TestPickCurrent_Scenario(t *testing.T) {
	items := []types.Present{
		present("b", t0.Add(time.Hour)),
		present("a", t0),
	}
	now := t0.Add(30 * time.Minute)

	cur, ok := PickCurrent(items, NewSet(), now)
	if !ok || cur.ID != "a" {
		t.Fatalf("unexpected current: %+v", cur)
	}
	if state := Classify(*cur, NewSet(), now); state != types.StateUnlocked {
		t.Fatalf("unexpected state for a: got=%s want=%s", state, types.StateUnlocked)
	}

	b := items[0]
	if state := Classify(b, NewSet(), now); state != types.StateLocked {
		t.Fatalf("unexpected state for b: got=%s want=%s", state, types.StateLocked)
	}
	if got := FormatCountdown(Remaining(b, now)); got != "00:30:00" {
		t.Fatalf("unexpected countdown: got=%q want=%q", got, "00:30:00")
	}

	cur, ok = PickCurrent(items, NewSet("a"), now)
	if !ok || cur.ID != "b" {
		t.Fatalf("unexpected current after revealing a: %+v", cur)
	}
}

func TestPickCurrent_AllRevealedAndEmpty(t *testing.T) {
	items := []types.Present{present("a", t0), present("b", t0.Add(time.Hour))}

	cur, ok := PickCurrent(items, NewSet("a", "b"), t0.Add(2*time.Hour))
	if !ok || cur.ID != "b" {
		t.Fatalf("all revealed should return last present, got %+v", cur)
	}
	if state := Classify(*cur, NewSet("a", "b"), t0.Add(2*time.Hour)); state != types.StateRevealed {
		t.Fatalf("unexpected state: %s", state)
	}

	if cur, ok := PickCurrent(nil, NewSet(), t0); ok || cur != nil {
		t.Fatalf("empty collection should return none")
	}
}

func TestClassify_Boundary(t *testing.T) {
	p := present("a", t0)
	if got := Classify(p, NewSet(), t0.Add(-time.Nanosecond)); got != types.StateLocked {
		t.Fatalf("just before unlock: got=%s", got)
	}
	if got := Classify(p, NewSet(), t0); got != types.StateUnlocked {
		t.Fatalf("exactly at unlock: got=%s", got)
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-5 * time.Millisecond, "00:00:00"},
		{-5 * time.Hour, "00:00:00"},
		{0, "00:00:00"},
		{999 * time.Millisecond, "00:00:00"},
		{30 * time.Minute, "00:30:00"},
		{23*time.Hour + 59*time.Minute + 59*time.Second, "23:59:59"},
		{24 * time.Hour, "1d 00:00:00"},
		{50*time.Hour + 3*time.Second, "2d 02:00:03"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.in); got != tt.want {
			t.Fatalf("FormatCountdown(%v): got=%q want=%q", tt.in, got, tt.want)
		}
	}
}

func TestGalleryAndUnopened(t *testing.T) {
	items := []types.Present{
		present("a", t0),
		present("b", t0.Add(time.Hour)),
		present("c", t0.Add(2*time.Hour)),
	}
	revealed := NewSet("a", "b", "c")
	now := t0.Add(90 * time.Minute)

	got := ids(Gallery(items, revealed, now))
	want := []string{"b", "a"}
	if !equalIDs(got, want) {
		t.Fatalf("unexpected gallery: got=%v want=%v", got, want)
	}

	if n := Unopened(items, NewSet("a")); n != 2 {
		t.Fatalf("unexpected unopened count: got=%d want=2", n)
	}
}

func TestLatestUnlocked(t *testing.T) {
	items := []types.Present{
		present("a", t0),
		present("b", t0.Add(time.Hour)),
		present("c", t0.Add(2*time.Hour)),
	}

	if p, ok := LatestUnlocked(items, t0.Add(-time.Minute)); ok || p != nil {
		t.Fatalf("nothing should be unlocked yet")
	}
	p, ok := LatestUnlocked(items, t0.Add(time.Hour))
	if !ok || p.ID != "b" {
		t.Fatalf("unexpected latest unlocked: %+v", p)
	}
}
