package main

import (
	"context"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/calendar"
	"github.com/ichi0g0y/present-calendar/internal/env"
	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/presents"
	"github.com/ichi0g0y/present-calendar/internal/revealstate"
	"github.com/ichi0g0y/present-calendar/internal/settings"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/types"
	"github.com/ichi0g0y/present-calendar/internal/wheel"
	"go.uber.org/zap"
)

const presentsLoadTimeout = 15 * time.Second

// loadPresents は起動時に一度だけプレゼント定義を読み込む。
// 失敗しても起動は続け、コントローラを failed 状態にする
func loadPresents(ctx context.Context) ([]types.Present, error) {
	ctx, cancel := context.WithTimeout(ctx, presentsLoadTimeout)
	defer cancel()

	result, err := presents.Load(ctx, env.Value.PresentsPath, presents.Options{Location: env.Value.Location})
	if err != nil {
		logger.Error("Failed to load presents",
			zap.String("source", env.Value.PresentsPath),
			zap.Error(err))
		return nil, err
	}
	if len(result.Presents) == 0 {
		logger.Warn("No presents configured", zap.String("source", env.Value.PresentsPath))
	}
	return result.Presents, nil
}

func newController(ctx context.Context, memory bool) *calendar.Controller {
	items, loadErr := loadPresents(ctx)

	var kv revealstate.KV = revealstate.NewMemoryKV()
	var onCommit calendar.SpinCommit
	if db := localdb.GetDB(); db != nil && !memory {
		kv = localdb.NewKVStore(db)
		onCommit = recordSpin
		logFeatureStatus()
	}

	return calendar.New(calendar.Config{
		Presents:       items,
		LoadErr:        loadErr,
		KV:             kv,
		Seed:           env.Value.AppSeed,
		SpinDuration:   env.Value.SpinDuration,
		ConfettiFrames: env.Value.ConfettiFrames,
		UnopenedImage:  env.Value.UnopenedImage,
		OnSpinCommit:   onCommit,
	})
}

// recordSpin は確定したルーレット結果を履歴テーブルに残す（失敗はログのみ）
func recordSpin(plan wheel.SpinPlan, at time.Time) {
	err := localdb.SaveSpinHistory(localdb.SpinHistory{
		PresentID:  plan.PresentID,
		Label:      plan.Label,
		Index:      plan.Index,
		ExtraTurns: plan.ExtraTurns,
		SpunAt:     at,
	})
	if err != nil {
		logger.Warn("Failed to save spin history", zap.String("present_id", plan.PresentID), zap.Error(err))
	}
}

func logFeatureStatus() {
	status, err := settings.NewSettingsManager(localdb.GetDB()).CheckFeatureStatus()
	if err != nil {
		logger.Warn("Failed to check feature status", zap.Error(err))
		return
	}
	for _, w := range status.Warnings {
		logger.Warn("Configuration warning", zap.String("detail", w))
	}
	if len(status.MissingSettings) > 0 {
		logger.Warn("Missing settings", zap.Strings("keys", status.MissingSettings))
	}
}
