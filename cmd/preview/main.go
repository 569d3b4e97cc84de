// preview はプレゼント定義ファイルを読み込み、解放スケジュールとルーレット結果を表で出力する。
// サーバーを立てずに presents ファイルと APP_SEED の組み合わせを確認するためのツール。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/presents"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/wheel"
	"go.uber.org/zap"
)

type config struct {
	Presents string
	Seed     string
	Timezone string
	At       string
	Debug    bool
}

func main() {
	cfg := new(config)
	flag.StringVar(&cfg.Presents, "presents", "presents.json", "presents file path or http(s) URL")
	flag.StringVar(&cfg.Seed, "seed", wheel.DefaultSeed, "wheel seed (APP_SEED)")
	flag.StringVar(&cfg.Timezone, "tz", "Asia/Tokyo", "timezone for zone-less unlock times")
	flag.StringVar(&cfg.At, "at", "", "evaluate as of this time (RFC 3339); default now")
	flag.BoolVar(&cfg.Debug, "debug", false, "debug logging")
	flag.Parse()

	logger.Init(cfg.Debug)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	now := time.Now()
	if cfg.At != "" {
		if now, err = presents.ParseUnlockAt(cfg.At, loc); err != nil {
			return fmt.Errorf("invalid -at value: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := presents.Load(ctx, cfg.Presents, presents.Options{Location: loc})
	if err != nil {
		return err
	}
	logger.Debug("Loaded presents", zap.Int("count", len(result.Presents)), zap.Int("dropped", result.Dropped))

	rows := buildRows(result.Presents, wheel.NewSelector(cfg.Seed), now, loc)
	fmt.Print(fmtTable(fmt.Sprintf("%s @ %s", cfg.Presents, now.In(loc).Format("2006-01-02 15:04:05")), rows))
	fmt.Printf("presents: %d  dropped: %d\n", len(result.Presents), result.Dropped)
	return nil
}
