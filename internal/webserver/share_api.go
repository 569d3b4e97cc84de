package webserver

import (
	"net/http"
	"strconv"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// handleShareQR はカレンダー表示ページのURLをQRコードPNGにして返す。
// ?url= が無ければリクエストのホストから組み立てる
func handleShareQR(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		target = scheme + "://" + r.Host + "/"
	}

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > maxQRSize {
			writeError(w, http.StatusBadRequest, "size must be between 64 and 1024")
			return
		}
		size = n
	}

	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		logger.Warn("Failed to encode QR code", zap.String("url", target), zap.Error(err))
		writeError(w, http.StatusBadRequest, "failed to encode QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		logger.Debug("Failed to write QR code", zap.Error(err))
	}
}
