package localdb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
)

// SetupKVTable creates the kv_store table.
func SetupKVTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		logger.Error("Failed to create kv_store table", zap.Error(err))
		return fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return nil
}

// KVStore は kv_store テーブルを revealstate.KV として公開する
type KVStore struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value for key. 読み取りエラーは未設定として扱う（ログのみ）。
func (s *KVStore) Get(key string) (string, bool) {
	if s.db == nil {
		return "", false
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		logger.Warn("Failed to read kv entry", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

func (s *KVStore) Set(key, value string) error {
	if s.db == nil {
		return errDBNotInitialized
	}

	_, err := s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set kv entry %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Remove(key string) error {
	if s.db == nil {
		return errDBNotInitialized
	}

	if _, err := s.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove kv entry %s: %w", key, err)
	}
	return nil
}
