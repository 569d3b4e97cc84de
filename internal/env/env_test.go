package env

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/settings"
)

func TestBuild_Defaults(t *testing.T) {
	v := build(func(key string) string { return settings.DefaultSettings[key].Value })

	if v.ServerPort != 8080 {
		t.Fatalf("ServerPort: got=%d want=%d", v.ServerPort, 8080)
	}
	if v.TickInterval != 250*time.Millisecond {
		t.Fatalf("TickInterval: got=%v", v.TickInterval)
	}
	if v.SpinDuration != 4500*time.Millisecond {
		t.Fatalf("SpinDuration: got=%v", v.SpinDuration)
	}
	if v.ConfettiFrames != 140 {
		t.Fatalf("ConfettiFrames: got=%d", v.ConfettiFrames)
	}
	if v.Location == nil || v.Location.String() != "Asia/Tokyo" {
		t.Fatalf("Location: got=%v", v.Location)
	}
	if v.DebugMode {
		t.Fatalf("DebugMode should default to false")
	}
}

func TestBuild_InvalidValuesFallBack(t *testing.T) {
	overrides := map[string]string{
		"SERVER_PORT":      "not-a-port",
		"TICK_INTERVAL_MS": "5",
		"TIMEZONE":         "Nowhere/Atlantis",
	}
	v := build(func(key string) string {
		if o, ok := overrides[key]; ok {
			return o
		}
		return settings.DefaultSettings[key].Value
	})

	if v.ServerPort != 8080 {
		t.Fatalf("ServerPort: got=%d want=8080", v.ServerPort)
	}
	if v.TickInterval != 250*time.Millisecond {
		t.Fatalf("TickInterval: got=%v want=250ms", v.TickInterval)
	}
	if v.Location != time.Local {
		t.Fatalf("Location should fall back to time.Local: got=%v", v.Location)
	}
}

func TestLoadEnv_WithDatabase(t *testing.T) {
	t.Setenv("PRESENT_CALENDAR_DATA_DIR", t.TempDir())
	t.Setenv("SPIN_DURATION_MS", "1200")

	_ = localdb.CloseDB()
	db, err := localdb.SetupDB(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("SetupDB failed: %v", err)
	}
	t.Cleanup(func() { _ = localdb.CloseDB() })

	sm := settings.NewSettingsManager(db)
	if err := sm.SetSetting("CONFETTI_FRAMES", "60"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	LoadEnv()

	if Value.SpinDuration != 1200*time.Millisecond {
		t.Fatalf("SpinDuration: got=%v want=1.2s", Value.SpinDuration)
	}
	if Value.ConfettiFrames != 60 {
		t.Fatalf("ConfettiFrames: got=%d want=60", Value.ConfettiFrames)
	}
}

func TestLoadEnv_WithoutDatabase(t *testing.T) {
	t.Setenv("PRESENT_CALENDAR_DATA_DIR", t.TempDir())
	t.Setenv("SERVER_PORT", "9191")
	_ = localdb.CloseDB()

	LoadEnv()

	if Value.ServerPort != 9191 {
		t.Fatalf("ServerPort: got=%d want=9191", Value.ServerPort)
	}
}
