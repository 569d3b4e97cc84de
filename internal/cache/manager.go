// Package cache はサムネイルなど再生成可能なファイルのディスクキャッシュを管理する。
// ファイル本体はデータディレクトリ配下、メタデータは cache_entries テーブルに置く。
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/settings"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/shared/paths"
	"go.uber.org/zap"
)

var errDBNotInitialized = errors.New("database not initialized")

// CacheEntry represents a cache file entry
type CacheEntry struct {
	ID             int64     `json:"id"`
	KeyHash        string    `json:"key_hash"`
	Source         string    `json:"source"`
	FilePath       string    `json:"file_path"`
	FileSize       int64     `json:"file_size"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// CacheSettings represents cache configuration
type CacheSettings struct {
	ExpiryDays int `json:"expiry_days"`
	MaxSizeMB  int `json:"max_size_mb"`
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalFiles     int       `json:"total_files"`
	TotalSizeMB    float64   `json:"total_size_mb"`
	OldestFileDate time.Time `json:"oldest_file_date"`
	ExpiredFiles   int       `json:"expired_files"`
}

// SetupCacheTable creates the cache_entries table.
func SetupCacheTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key_hash TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_accessed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create cache_entries table: %w", err)
	}
	return nil
}

// Key はキャッシュキーを作る（部品を連結してハッシュ化）
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// Store writes data to the cache directory and records it.
func Store(keyHash, source string, data []byte) (string, error) {
	dir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	filePath := filepath.Join(dir, keyHash+".png")
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := AddCacheEntry(keyHash, source, filePath, int64(len(data))); err != nil {
		return filePath, err
	}
	return filePath, nil
}

// Load returns cached bytes for keyHash. ファイルが消えていればエントリも消す
func Load(keyHash string) ([]byte, bool) {
	entry, err := GetCacheEntry(keyHash)
	if err != nil || entry == nil {
		return nil, false
	}
	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		logger.Debug("Cache file missing, dropping entry", zap.String("key_hash", keyHash), zap.Error(err))
		if db := localdb.GetDB(); db != nil {
			_, _ = db.Exec("DELETE FROM cache_entries WHERE id = ?", entry.ID)
		}
		return nil, false
	}
	return data, true
}

// AddCacheEntry adds a new cache entry to the database
func AddCacheEntry(keyHash, source, filePath string, fileSize int64) error {
	db := localdb.GetDB()
	if db == nil {
		return errDBNotInitialized
	}

	_, err := db.Exec(`INSERT INTO cache_entries (key_hash, source, file_path, file_size, created_at, last_accessed_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(key_hash) DO UPDATE SET
			file_path = excluded.file_path,
			file_size = excluded.file_size,
			last_accessed_at = CURRENT_TIMESTAMP`,
		keyHash, source, filePath, fileSize)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	logger.Debug("Added cache entry", zap.String("key_hash", keyHash), zap.String("source", source))
	return nil
}

// GetCacheEntry gets a cache entry by key hash
func GetCacheEntry(keyHash string) (*CacheEntry, error) {
	db := localdb.GetDB()
	if db == nil {
		return nil, errDBNotInitialized
	}

	entry := &CacheEntry{}
	err := db.QueryRow(`SELECT id, key_hash, source, file_path, file_size, created_at, last_accessed_at
		FROM cache_entries WHERE key_hash = ?`, keyHash).Scan(
		&entry.ID, &entry.KeyHash, &entry.Source, &entry.FilePath,
		&entry.FileSize, &entry.CreatedAt, &entry.LastAccessedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	if _, err := db.Exec("UPDATE cache_entries SET last_accessed_at = CURRENT_TIMESTAMP WHERE id = ?", entry.ID); err != nil {
		logger.Warn("Failed to update last accessed time", zap.Error(err))
	}

	return entry, nil
}

// GetCacheSettings reads cache limits from the settings table (defaults when unset).
func GetCacheSettings() (*CacheSettings, error) {
	db := localdb.GetDB()
	if db == nil {
		return nil, errDBNotInitialized
	}

	sm := settings.NewSettingsManager(db)
	cs := &CacheSettings{}
	for key, dst := range map[string]*int{
		"CACHE_EXPIRY_DAYS": &cs.ExpiryDays,
		"CACHE_MAX_SIZE_MB": &cs.MaxSizeMB,
	} {
		raw, err := sm.GetSetting(key)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", key, err)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			n, _ = strconv.Atoi(settings.DefaultSettings[key].Value)
		}
		*dst = n
	}
	return cs, nil
}

// GetCacheStats calculates cache statistics
func GetCacheStats() (*CacheStats, error) {
	db := localdb.GetDB()
	if db == nil {
		return nil, errDBNotInitialized
	}

	stats := &CacheStats{}
	var totalBytes int64
	if err := db.QueryRow("SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM cache_entries").Scan(&stats.TotalFiles, &totalBytes); err != nil {
		return nil, fmt.Errorf("failed to get cache stats: %w", err)
	}
	stats.TotalSizeMB = float64(totalBytes) / (1024 * 1024)

	if stats.TotalFiles > 0 {
		if err := db.QueryRow("SELECT created_at FROM cache_entries ORDER BY created_at ASC LIMIT 1").Scan(&stats.OldestFileDate); err != nil {
			logger.Warn("Failed to get oldest file date", zap.Error(err))
		}
	}

	if cs, err := GetCacheSettings(); err == nil {
		expiry := time.Now().AddDate(0, 0, -cs.ExpiryDays)
		if err := db.QueryRow("SELECT COUNT(*) FROM cache_entries WHERE created_at < ?", expiry).Scan(&stats.ExpiredFiles); err != nil {
			logger.Warn("Failed to get expired files count", zap.Error(err))
		}
	}

	return stats, nil
}

// deleteWhere removes files and rows matching the condition.
func deleteWhere(db *sql.DB, where string, args ...interface{}) (int, error) {
	rows, err := db.Query("SELECT id, file_path FROM cache_entries WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to query cache entries: %w", err)
	}

	type target struct {
		id   int64
		path string
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.id, &t.path); err != nil {
			logger.Warn("Failed to scan cache entry", zap.Error(err))
			continue
		}
		targets = append(targets, t)
	}
	rows.Close()

	deleted := 0
	for _, t := range targets {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to delete cache file", zap.String("path", t.path), zap.Error(err))
		} else {
			deleted++
		}
		if _, err := db.Exec("DELETE FROM cache_entries WHERE id = ?", t.id); err != nil {
			logger.Warn("Failed to delete cache entry", zap.Int64("id", t.id), zap.Error(err))
		}
	}
	return deleted, nil
}

// CleanupExpiredEntries removes expired cache files
func CleanupExpiredEntries() error {
	db := localdb.GetDB()
	if db == nil {
		return errDBNotInitialized
	}
	cs, err := GetCacheSettings()
	if err != nil {
		return err
	}

	deleted, err := deleteWhere(db, "created_at < ?", time.Now().AddDate(0, 0, -cs.ExpiryDays))
	if err != nil {
		return err
	}
	if deleted > 0 {
		logger.Info("Cleaned up expired cache entries", zap.Int("files_deleted", deleted))
	}
	return nil
}

// ClearAllCache removes all cache files and database entries
func ClearAllCache() error {
	db := localdb.GetDB()
	if db == nil {
		return errDBNotInitialized
	}
	deleted, err := deleteWhere(db, "1 = 1")
	if err != nil {
		return err
	}
	logger.Info("Cleared all cache", zap.Int("files_deleted", deleted))
	return nil
}

// CleanupOversizeCache removes least recently used files until the cache is under 80% of the limit.
func CleanupOversizeCache() error {
	db := localdb.GetDB()
	if db == nil {
		return errDBNotInitialized
	}
	cs, err := GetCacheSettings()
	if err != nil {
		return err
	}

	var total int64
	if err := db.QueryRow("SELECT COALESCE(SUM(file_size), 0) FROM cache_entries").Scan(&total); err != nil {
		return fmt.Errorf("failed to get cache size: %w", err)
	}
	limit := int64(cs.MaxSizeMB) * 1024 * 1024
	if total <= limit {
		return nil
	}
	toFree := total - limit*80/100

	rows, err := db.Query("SELECT id, file_size FROM cache_entries ORDER BY last_accessed_at ASC, id ASC")
	if err != nil {
		return fmt.Errorf("failed to query cache entries for cleanup: %w", err)
	}
	var ids []string
	var freed int64
	for rows.Next() && freed < toFree {
		var id, size int64
		if err := rows.Scan(&id, &size); err != nil {
			continue
		}
		ids = append(ids, strconv.FormatInt(id, 10))
		freed += size
	}
	rows.Close()

	if len(ids) == 0 {
		return nil
	}
	deleted, err := deleteWhere(db, "id IN ("+strings.Join(ids, ",")+")")
	if err != nil {
		return err
	}

	logger.Info("Cleaned up oversized cache",
		zap.Int("files_deleted", deleted),
		zap.Int64("bytes_freed", freed))
	return nil
}

// GetCacheDir returns (and creates) the cache directory.
func GetCacheDir() (string, error) {
	cacheDir := filepath.Join(paths.GetDataDir(), "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		logger.Error("Failed to create cache directory", zap.String("cache_dir", cacheDir), zap.Error(err))
		return "", fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}
	return cacheDir, nil
}

// InitializeCache creates the table and runs the startup cleanup.
func InitializeCache() error {
	db := localdb.GetDB()
	if db == nil {
		return errDBNotInitialized
	}
	if err := SetupCacheTable(db); err != nil {
		return err
	}
	if _, err := GetCacheDir(); err != nil {
		return err
	}

	if err := CleanupExpiredEntries(); err != nil {
		logger.Warn("Failed to cleanup expired entries on startup", zap.Error(err))
	}
	if err := CleanupOversizeCache(); err != nil {
		logger.Warn("Failed to cleanup oversized cache on startup", zap.Error(err))
	}

	if stats, err := GetCacheStats(); err == nil {
		logger.Info("Cache system initialized",
			zap.Int("total_files", stats.TotalFiles),
			zap.Float64("total_size_mb", stats.TotalSizeMB))
	}
	return nil
}
