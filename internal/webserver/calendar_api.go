package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ichi0g0y/present-calendar/internal/calendar"
	"github.com/ichi0g0y/present-calendar/internal/env"
	"github.com/ichi0g0y/present-calendar/internal/localdb"
	"github.com/ichi0g0y/present-calendar/internal/presents"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
)

// calendarErrorStatus maps controller errors to HTTP status codes.
func calendarErrorStatus(err error) int {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, calendar.ErrNoChoice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, calendar.ErrNotUnlocked),
		errors.Is(err, calendar.ErrAlreadyRevealed),
		errors.Is(err, calendar.ErrNothingRevealed),
		errors.Is(err, calendar.ErrNotSpinning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeCalendarError(w http.ResponseWriter, err error) {
	writeError(w, calendarErrorStatus(err), err.Error())
}

// GET /api/calendar
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, calendarCtl.Snapshot())
}

// POST /api/calendar/open
func handleOpen(w http.ResponseWriter, r *http.Request) {
	p, err := calendarCtl.Open()
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"present": p,
		"view":    calendarCtl.Snapshot(),
	})
}

// POST /api/calendar/reveal/{id}
func handleRevealID(w http.ResponseWriter, r *http.Request) {
	p, err := calendarCtl.RevealID(chi.URLParam(r, "id"))
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"present": p,
		"view":    calendarCtl.Snapshot(),
	})
}

// POST /api/calendar/unreveal
func handleUnreveal(w http.ResponseWriter, r *http.Request) {
	id, err := calendarCtl.Unreveal()
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"present_id": id,
		"view":       calendarCtl.Snapshot(),
	})
}

// POST /api/calendar/reveal-all
func handleRevealAll(w http.ResponseWriter, r *http.Request) {
	n, err := calendarCtl.RevealAllButLatest()
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"revealed": n,
		"view":     calendarCtl.Snapshot(),
	})
}

type featuredRequest struct {
	PresentID string `json:"present_id"`
}

// PUT /api/calendar/featured
func handleFeatured(w http.ResponseWriter, r *http.Request) {
	var req featuredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := calendarCtl.SetFeatured(req.PresentID); err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"view":    calendarCtl.Snapshot(),
	})
}

// POST /api/calendar/reload
// PRESENTS_PATH を再読み込みする。開封状態はそのまま残る
func handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	result, err := presents.Load(ctx, env.Value.PresentsPath, presents.Options{Location: env.Value.Location})
	if err != nil {
		logger.Error("Failed to reload presents", zap.String("source", env.Value.PresentsPath), zap.Error(err))
		calendarCtl.Replace(nil, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	calendarCtl.Replace(result.Presents, nil)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"loaded":  len(result.Presents),
		"dropped": result.Dropped,
		"view":    calendarCtl.Snapshot(),
	})
}

// POST /api/calendar/wheel/{id}/spin
func handleSpin(w http.ResponseWriter, r *http.Request) {
	spin, err := calendarCtl.Spin(chi.URLParam(r, "id"))
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spin)
}

// POST /api/calendar/wheel/{id}/settle
func handleSettle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	label, err := calendarCtl.SettleSpin(id)
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"present_id": id,
		"label":      label,
	})
}

// DELETE /api/calendar/wheel/{id}
func handleClearWheel(w http.ResponseWriter, r *http.Request) {
	if err := calendarCtl.ClearWheelOutcome(chi.URLParam(r, "id")); err != nil {
		writeCalendarError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GET /api/calendar/wheel/history
func handleWheelHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	// --memory 起動時はDBがない
	if localdb.GetDB() == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"history": []localdb.SpinHistory{},
			"count":   0,
		})
		return
	}

	history, err := localdb.GetSpinHistory(limit)
	if err != nil {
		logger.Error("Failed to get spin history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get spin history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"count":   len(history),
	})
}
