package settings

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
)

type SettingType string

const (
	SettingTypeNormal SettingType = "normal"
	SettingTypeSecret SettingType = "secret"
)

type Setting struct {
	Key         string      `json:"key"`
	Value       string      `json:"value"`
	Type        SettingType `json:"type"`
	Required    bool        `json:"required"`
	Description string      `json:"description"`
	UpdatedAt   time.Time   `json:"updated_at"`
	HasValue    bool        `json:"has_value"` // シークレット値が設定されているかどうか
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// 設定の定義
var DefaultSettings = map[string]Setting{
	// カレンダー設定
	"PRESENTS_PATH": {
		Key: "PRESENTS_PATH", Value: "presents.json", Type: SettingTypeNormal, Required: true,
		Description: "Presents file path or http(s) URL (.json / .yaml)",
	},
	"APP_SEED": {
		Key: "APP_SEED", Value: "present-calendar/v1", Type: SettingTypeSecret, Required: false,
		Description: "Seed mixed into every wheel outcome (changing it changes all outcomes)",
	},
	"TIMEZONE": {
		Key: "TIMEZONE", Value: "Asia/Tokyo", Type: SettingTypeNormal, Required: false,
		Description: "Timezone for unlock times written without an offset",
	},
	"UNOPENED_IMAGE": {
		Key: "UNOPENED_IMAGE", Value: "images/unopened.png", Type: SettingTypeNormal, Required: false,
		Description: "Image shown for presents that are not opened yet",
	},

	// 動作設定
	"TICK_INTERVAL_MS": {
		Key: "TICK_INTERVAL_MS", Value: "250", Type: SettingTypeNormal, Required: false,
		Description: "Re-evaluation interval in milliseconds",
	},
	"SPIN_DURATION_MS": {
		Key: "SPIN_DURATION_MS", Value: "4500", Type: SettingTypeNormal, Required: false,
		Description: "Wheel spin animation length in milliseconds",
	},
	"CONFETTI_FRAMES": {
		Key: "CONFETTI_FRAMES", Value: "140", Type: SettingTypeNormal, Required: false,
		Description: "Frame budget of one confetti burst",
	},
	"DEBUG_OUTPUT": {
		Key: "DEBUG_OUTPUT", Value: "false", Type: SettingTypeNormal, Required: false,
		Description: "Enable debug output",
	},

	// キャッシュ設定（サムネイル）
	"CACHE_MAX_SIZE_MB": {
		Key: "CACHE_MAX_SIZE_MB", Value: "100", Type: SettingTypeNormal, Required: false,
		Description: "Maximum thumbnail cache size in MB",
	},
	"CACHE_EXPIRY_DAYS": {
		Key: "CACHE_EXPIRY_DAYS", Value: "30", Type: SettingTypeNormal, Required: false,
		Description: "Thumbnail cache expiry in days",
	},

	// サーバー設定
	"SERVER_PORT": {
		Key: "SERVER_PORT", Value: "8080", Type: SettingTypeNormal, Required: false,
		Description: "Web server port",
	},
}

// FeatureStatus は設定状況のサマリー
type FeatureStatus struct {
	PresentsConfigured bool     `json:"presents_configured"`
	MissingSettings    []string `json:"missing_settings"`
	Warnings           []string `json:"warnings"`
	ServiceMode        bool     `json:"service_mode"` // systemdサービスとして実行されているか
}

func (sm *SettingsManager) CheckFeatureStatus() (*FeatureStatus, error) {
	status := &FeatureStatus{
		MissingSettings: []string{},
		Warnings:        []string{},
		ServiceMode:     os.Getenv("RUNNING_AS_SERVICE") == "true",
	}

	path, err := sm.GetSetting("PRESENTS_PATH")
	if err != nil || strings.TrimSpace(path) == "" {
		status.MissingSettings = append(status.MissingSettings, "PRESENTS_PATH")
	} else {
		status.PresentsConfigured = true
		if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
			if _, err := os.Stat(path); err != nil {
				status.Warnings = append(status.Warnings, fmt.Sprintf("presents file not found: %s", path))
			}
		}
	}

	if seed, _ := sm.GetSetting("APP_SEED"); seed == DefaultSettings["APP_SEED"].Value {
		status.Warnings = append(status.Warnings, "APP_SEED is the default value - wheel outcomes are predictable")
	}

	return status, nil
}

// CRUD操作
func (sm *SettingsManager) GetSetting(key string) (string, error) {
	var value string
	err := sm.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		// デフォルト値を返す
		if defaultSetting, exists := DefaultSettings[key]; exists {
			return defaultSetting.Value, nil
		}
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return value, err
}

func (sm *SettingsManager) SetSetting(key, value string) error {
	// デフォルト設定が存在するかチェック
	defaultSetting, exists := DefaultSettings[key]
	if !exists {
		return fmt.Errorf("unknown setting key: %s", key)
	}

	_, err := sm.db.Exec(`
		INSERT INTO settings (key, value, setting_type, is_required, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
		string(defaultSetting.Type),
		defaultSetting.Required,
		defaultSetting.Description,
	)
	return err
}

func (sm *SettingsManager) GetAllSettings() (map[string]Setting, error) {
	rows, err := sm.db.Query(`
		SELECT key, value, setting_type, is_required, description, updated_at
		FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]Setting)
	for rows.Next() {
		var s Setting
		var settingType string
		var description sql.NullString
		err := rows.Scan(&s.Key, &s.Value, &settingType, &s.Required, &description, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		s.Type = SettingType(settingType)
		s.Description = description.String
		s.HasValue = s.Value != ""

		// シークレットはマスクして返す
		if s.Type == SettingTypeSecret && s.Value != "" {
			s.Value = "********"
		}

		settings[s.Key] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DBにない設定はデフォルト値で補完
	for key, defaultSetting := range DefaultSettings {
		if _, exists := settings[key]; !exists {
			defaultSetting.HasValue = defaultSetting.Value != ""
			if defaultSetting.Type == SettingTypeSecret && defaultSetting.Value != "" {
				defaultSetting.Value = "********"
			}
			settings[key] = defaultSetting
		}
	}

	return settings, nil
}

// 実際の値を取得（マスクなし）- 内部処理用
func (sm *SettingsManager) GetRealValue(key string) (string, error) {
	return sm.GetSetting(key)
}

// 環境変数からの移行
func (sm *SettingsManager) MigrateFromEnv() error {
	logger.Info("Starting migration from environment variables")
	migrated := 0

	for key := range DefaultSettings {
		// 既にDB設定が存在する場合はスキップ
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		// 環境変数から取得
		if envValue := os.Getenv(key); envValue != "" {
			if err := ValidateSetting(key, envValue); err != nil {
				logger.Warn("Ignoring invalid environment setting", zap.String("key", key), zap.Error(err))
				continue
			}
			if err := sm.SetSetting(key, envValue); err != nil {
				logger.Error("Failed to migrate setting", zap.String("key", key), zap.Error(err))
				return fmt.Errorf("failed to migrate %s: %w", key, err)
			}
			logger.Info("Migrated setting from environment", zap.String("key", key))
			migrated++
		}
	}

	if migrated > 0 {
		logger.Info("Migration completed", zap.Int("migrated_count", migrated))
	}

	return nil
}

// バリデーション
func ValidateSetting(key, value string) error {
	switch key {
	case "SERVER_PORT":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 65535 {
			return fmt.Errorf("must be integer between 1 and 65535")
		}
	case "TICK_INTERVAL_MS":
		if val, err := strconv.Atoi(value); err != nil || val < 50 || val > 10000 {
			return fmt.Errorf("must be integer between 50 and 10000 milliseconds")
		}
	case "SPIN_DURATION_MS":
		if val, err := strconv.Atoi(value); err != nil || val < 100 || val > 60000 {
			return fmt.Errorf("must be integer between 100 and 60000 milliseconds")
		}
	case "CONFETTI_FRAMES":
		if val, err := strconv.Atoi(value); err != nil || val < 0 || val > 1000 {
			return fmt.Errorf("must be integer between 0 and 1000")
		}
	case "CACHE_MAX_SIZE_MB":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 10240 {
			return fmt.Errorf("must be integer between 1 and 10240")
		}
	case "CACHE_EXPIRY_DAYS":
		if val, err := strconv.Atoi(value); err != nil || val < 1 || val > 365 {
			return fmt.Errorf("must be integer between 1 and 365")
		}
	case "TIMEZONE":
		if value != "" {
			if _, err := time.LoadLocation(value); err != nil {
				return fmt.Errorf("invalid timezone: %v", err)
			}
		}
	case "PRESENTS_PATH":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("must not be empty")
		}
	case "DEBUG_OUTPUT":
		if value != "true" && value != "false" {
			return fmt.Errorf("must be 'true' or 'false'")
		}
	}
	return nil
}

// 初期設定のセットアップ
func (sm *SettingsManager) InitializeDefaultSettings() error {
	for key, setting := range DefaultSettings {
		// 既に設定が存在する場合はスキップ
		var existingKey string
		if err := sm.db.QueryRow("SELECT key FROM settings WHERE key = ?", key).Scan(&existingKey); err == nil {
			continue
		}

		// デフォルト値で初期化
		if err := sm.SetSetting(key, setting.Value); err != nil {
			return fmt.Errorf("failed to initialize setting %s: %w", key, err)
		}
	}
	return nil
}
