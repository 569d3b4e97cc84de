package localdb

import (
	"database/sql"
	"fmt"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var DBClient *sql.DB

var errDBNotInitialized = fmt.Errorf("database not initialized")

func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WALモードとBusy Timeoutを設定（Race Condition対策）
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLiteは単一ライターなので接続プールを1に制限
	db.SetMaxOpenConns(1)

	// settingsテーブル（SettingsManagerが使用）
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		setting_type TEXT NOT NULL DEFAULT 'normal',
		is_required BOOLEAN NOT NULL DEFAULT false,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create settings table", zap.Error(err))
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	// 開封状態などのキーバリュー（ブラウザのlocalStorage相当）
	if err := SetupKVTable(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := SetupSpinHistoryTable(db); err != nil {
		db.Close()
		return nil, err
	}

	DBClient = db
	return db, nil
}

// GetDB は現在のデータベース接続を返します
func GetDB() *sql.DB {
	return DBClient
}

// CloseDB closes and forgets the shared connection.
func CloseDB() error {
	if DBClient == nil {
		return nil
	}
	err := DBClient.Close()
	DBClient = nil
	return err
}
