package webserver

import (
	"net/http"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/version"
)

// GET /api/status
func handleStatus(w http.ResponseWriter, r *http.Request) {
	statusData := map[string]interface{}{
		"version":   version.String(),
		"host":      hostname(),
		"wsClients": wsHub.ClientCount(),
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if calendarCtl != nil {
		view := calendarCtl.Snapshot()
		statusData["state"] = view.State
		statusData["presents"] = view.Total
		statusData["opened"] = view.OpenedCount
		statusData["tickActive"] = calendarCtl.TickActive()
		statusData["activeAnimations"] = calendarCtl.Driver().Active()
	}

	writeJSON(w, http.StatusOK, statusData)
}
