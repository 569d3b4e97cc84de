package env

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/settings"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/shared/paths"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type EnvValue struct {
	ServerPort     int
	DebugMode      bool
	PresentsPath   string
	AppSeed        string
	UnopenedImage  string
	Timezone       string
	Location       *time.Location
	TickInterval   time.Duration
	SpinDuration   time.Duration
	ConfettiFrames int
}

var Value EnvValue

// valueSource は設定値の取得元 (DB優先、なければ環境変数/デフォルト)
type valueSource func(key string) string

func LoadEnv() {
	// .env はカレントとデータディレクトリの両方を見る (既存の環境変数は上書きしない)
	for _, p := range []string{".env", filepath.Join(paths.GetDataDir(), ".env")} {
		if err := godotenv.Load(p); err == nil {
			logger.Debug("Loaded .env file", zap.String("path", p))
		}
	}

	db := localdb.GetDB()
	if db == nil {
		logger.Warn("Database not initialized, using environment variables and defaults")
		Value = build(fromEnv)
		return
	}

	sm := settings.NewSettingsManager(db)
	if err := sm.MigrateFromEnv(); err != nil {
		logger.Warn("Failed to migrate settings from environment", zap.Error(err))
	}
	if err := sm.InitializeDefaultSettings(); err != nil {
		logger.Warn("Failed to initialize default settings", zap.Error(err))
	}

	Value = build(func(key string) string {
		v, err := sm.GetRealValue(key)
		if err != nil {
			return fromEnv(key)
		}
		return v
	})

	logger.Debug("Environment loaded",
		zap.Int("server_port", Value.ServerPort),
		zap.String("presents_path", Value.PresentsPath),
		zap.String("timezone", Value.Timezone),
		zap.Duration("tick_interval", Value.TickInterval),
		zap.Duration("spin_duration", Value.SpinDuration))
}

// Reload は設定変更後に呼ぶ
func Reload() {
	LoadEnv()
}

func fromEnv(key string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return settings.DefaultSettings[key].Value
}

func build(get valueSource) EnvValue {
	v := EnvValue{
		ServerPort:     getInt(get, "SERVER_PORT"),
		DebugMode:      get("DEBUG_OUTPUT") == "true",
		PresentsPath:   strings.TrimSpace(get("PRESENTS_PATH")),
		AppSeed:        get("APP_SEED"),
		UnopenedImage:  get("UNOPENED_IMAGE"),
		Timezone:       get("TIMEZONE"),
		TickInterval:   time.Duration(getInt(get, "TICK_INTERVAL_MS")) * time.Millisecond,
		SpinDuration:   time.Duration(getInt(get, "SPIN_DURATION_MS")) * time.Millisecond,
		ConfettiFrames: getInt(get, "CONFETTI_FRAMES"),
	}

	v.Location = time.Local
	if v.Timezone != "" {
		if loc, err := time.LoadLocation(v.Timezone); err == nil {
			v.Location = loc
		} else {
			logger.Warn("Invalid TIMEZONE, falling back to local time", zap.String("timezone", v.Timezone), zap.Error(err))
		}
	}
	return v
}

// getInt は不正値ならデフォルトを返す
func getInt(get valueSource, key string) int {
	raw := get(key)
	if err := settings.ValidateSetting(key, raw); err == nil {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	logger.Warn("Invalid integer setting, using default", zap.String("key", key), zap.String("value", raw))
	n, _ := strconv.Atoi(settings.DefaultSettings[key].Value)
	return n
}
