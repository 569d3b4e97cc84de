package webserver

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ichi0g0y/present-calendar/internal/cache"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/thumbnail"
	"go.uber.org/zap"
)

func handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := cache.GetCacheStats()
	if err != nil {
		logger.Error("Failed to get cache stats", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Failed to get cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := cache.ClearAllCache(); err != nil {
		logger.Error("Failed to clear cache", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Failed to clear cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	if err := cache.CleanupExpiredEntries(); err != nil {
		logger.Error("Failed to cleanup expired cache", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Failed to cleanup cache")
		return
	}
	if err := cache.CleanupOversizeCache(); err != nil {
		logger.Warn("Failed to cleanup oversized cache", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// handleThumbnail は /thumbs/{size}/* でギャラリー用の縮小PNGを返す
func handleThumbnail(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.Atoi(chi.URLParam(r, "size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid size")
		return
	}

	data, err := thumbnail.Get(currentImagesDir(), chi.URLParam(r, "*"), size)
	switch {
	case err == nil:
	case errors.Is(err, thumbnail.ErrInvalidSize), errors.Is(err, thumbnail.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, "image not found")
		return
	default:
		logger.Warn("Failed to render thumbnail", zap.String("path", chi.URLParam(r, "*")), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, "failed to render thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logger.Debug("Failed to write thumbnail", zap.Error(err))
	}
}
