// Package thumbnail はギャラリー用の縮小画像を生成する。
// 生成結果は internal/cache のディスクキャッシュに載せる。
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/ichi0g0y/present-calendar/internal/cache"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MinSize = 16
	MaxSize = 1024
)

var (
	ErrInvalidSize = errors.New("thumbnail size out of range")
	ErrInvalidPath = errors.New("invalid image path")
)

// Render は画像をデコードし、長辺が maxSide 以下になるよう縮小した PNG を返す。
// 元画像が既に小さい場合は拡大しない。
func Render(r io.Reader, maxSide int) ([]byte, error) {
	if maxSide < MinSize || maxSide > MaxSize {
		return nil, ErrInvalidSize
	}

	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	logger.Debug("Rendered thumbnail",
		zap.String("format", format),
		zap.Int("src_width", b.Dx()),
		zap.Int("src_height", b.Dy()),
		zap.Int("width", w),
		zap.Int("height", h))
	return buf.Bytes(), nil
}

func fit(w, h, maxSide int) (int, int) {
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		nh := h * maxSide / w
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh
	}
	nw := w * maxSide / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide
}

// Resolve は imagesDir 配下の相対パスを実ファイルパスに変換する（ディレクトリ外は拒否）
func Resolve(imagesDir, name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" {
		return "", ErrInvalidPath
	}
	return filepath.Join(imagesDir, filepath.FromSlash(clean[1:])), nil
}

// Get returns a PNG thumbnail for imagesDir/name, using the disk cache when available.
func Get(imagesDir, name string, maxSide int) ([]byte, error) {
	if maxSide < MinSize || maxSide > MaxSize {
		return nil, ErrInvalidSize
	}
	full, err := Resolve(imagesDir, name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	key := cache.Key(full, strconv.Itoa(maxSide), strconv.FormatInt(info.ModTime().UnixNano(), 10))
	if data, ok := cache.Load(key); ok {
		return data, nil
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := Render(f, maxSide)
	if err != nil {
		return nil, err
	}

	// キャッシュ失敗は致命的ではない
	if _, err := cache.Store(key, name, data); err != nil {
		logger.Debug("Thumbnail not cached", zap.String("image", name), zap.Error(err))
	}
	return data, nil
}
