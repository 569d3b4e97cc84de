package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ichi0g0y/present-calendar/internal/env"
	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/settings"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
)

func settingsManager() (*settings.SettingsManager, bool) {
	db := localdb.GetDB()
	if db == nil {
		return nil, false
	}
	return settings.NewSettingsManager(db), true
}

// GET /api/settings
func handleGetSettings(w http.ResponseWriter, r *http.Request) {
	sm, ok := settingsManager()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}

	all, err := sm.GetAllSettings()
	if err != nil {
		logger.Error("Failed to get settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings": all,
	})
}

// PUT /api/settings
// body: {"KEY": value, ...} 未知のキーは無視、不正な値は 400
func handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	sm, ok := settingsManager()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 先に全件バリデーションしてから保存する
	values := make(map[string]string, len(body))
	for key, raw := range body {
		if _, known := settings.DefaultSettings[key]; !known {
			logger.Debug("Ignoring unknown setting key", zap.String("key", key))
			continue
		}
		value := settingString(raw)
		if err := settings.ValidateSetting(key, value); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", key, err))
			return
		}
		values[key] = value
	}

	updated := make([]string, 0, len(values))
	for key, value := range values {
		if err := sm.SetSetting(key, value); err != nil {
			logger.Error("Failed to save setting", zap.String("key", key), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save setting "+key)
			return
		}
		logger.Info("Setting saved", zap.String("key", key))
		updated = append(updated, key)
	}

	// 環境変数を再読み込み
	env.Reload()
	BroadcastWSMessage("settings_updated", map[string]interface{}{"keys": updated})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"updated": updated,
	})
}

// GET /api/settings/status
func handleSettingsStatus(w http.ResponseWriter, r *http.Request) {
	sm, ok := settingsManager()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}
	status, err := sm.CheckFeatureStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// settingString は JSON 値を設定値の文字列に変換する
func settingString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%d", int(val))
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
