package localdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
)

// SpinHistory はルーレット確定結果の履歴
type SpinHistory struct {
	ID         int       `json:"id"`
	PresentID  string    `json:"present_id"`
	Label      string    `json:"label"`
	Index      int       `json:"index"`
	ExtraTurns int       `json:"extra_turns"`
	SpunAt     time.Time `json:"spun_at"`
}

// SetupSpinHistoryTable creates the spin_history table.
func SetupSpinHistoryTable(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS spin_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			present_id TEXT NOT NULL,
			label TEXT NOT NULL,
			option_index INTEGER NOT NULL,
			extra_turns INTEGER NOT NULL,
			spun_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		logger.Error("Failed to create spin_history table", zap.Error(err))
		return fmt.Errorf("failed to create spin_history table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_spin_history_spun_at ON spin_history(spun_at DESC)`); err != nil {
		logger.Warn("Failed to create spin_history index", zap.Error(err))
	}

	return nil
}

// SaveSpinHistory saves one committed spin.
func SaveSpinHistory(history SpinHistory) error {
	db := GetDB()
	if db == nil {
		return errDBNotInitialized
	}

	if history.SpunAt.IsZero() {
		history.SpunAt = time.Now()
	}

	_, err := db.Exec(`
		INSERT INTO spin_history (present_id, label, option_index, extra_turns, spun_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		history.PresentID,
		history.Label,
		history.Index,
		history.ExtraTurns,
		history.SpunAt,
	)
	if err != nil {
		logger.Error("Failed to save spin history", zap.Error(err), zap.String("present_id", history.PresentID))
		return fmt.Errorf("failed to save spin history: %w", err)
	}

	return nil
}

// GetSpinHistory returns spin history ordered by latest first.
func GetSpinHistory(limit int) ([]SpinHistory, error) {
	db := GetDB()
	if db == nil {
		return []SpinHistory{}, errDBNotInitialized
	}

	query := `
		SELECT id, present_id, label, option_index, extra_turns, spun_at
		FROM spin_history
		ORDER BY spun_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		logger.Error("Failed to get spin history", zap.Error(err))
		return []SpinHistory{}, fmt.Errorf("failed to get spin history: %w", err)
	}
	defer rows.Close()

	history := []SpinHistory{}
	for rows.Next() {
		var item SpinHistory
		if err := rows.Scan(
			&item.ID,
			&item.PresentID,
			&item.Label,
			&item.Index,
			&item.ExtraTurns,
			&item.SpunAt,
		); err != nil {
			logger.Error("Failed to scan spin history", zap.Error(err))
			continue
		}
		history = append(history, item)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error iterating spin history", zap.Error(err))
		return []SpinHistory{}, fmt.Errorf("failed to iterate spin history: %w", err)
	}

	return history, nil
}

// DeleteSpinHistory deletes history rows for one present.
func DeleteSpinHistory(presentID string) error {
	db := GetDB()
	if db == nil {
		return errDBNotInitialized
	}

	if _, err := db.Exec(`DELETE FROM spin_history WHERE present_id = ?`, presentID); err != nil {
		logger.Error("Failed to delete spin history", zap.Error(err), zap.String("present_id", presentID))
		return fmt.Errorf("failed to delete spin history: %w", err)
	}

	return nil
}
