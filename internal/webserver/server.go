package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ichi0g0y/present-calendar/internal/calendar"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/shared/paths"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

var (
	httpServer  *http.Server
	calendarCtl *calendar.Controller
	imagesDir   string
)

// SetController wires the calendar controller and forwards its events to WebSocket clients.
func SetController(c *calendar.Controller) {
	calendarCtl = c
	if c == nil {
		return
	}
	c.OnEvent(func(ev calendar.Event) {
		BroadcastWSMessage(string(ev.Type), ev.Data)
	})
}

// SetImagesDir overrides the directory served under /images/.
func SetImagesDir(dir string) {
	imagesDir = dir
}

func currentImagesDir() string {
	if imagesDir != "" {
		return imagesDir
	}
	return paths.GetImagesDir()
}

// NewRouter builds the HTTP handler tree.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
	}).Handler)

	r.Route("/api/calendar", func(r chi.Router) {
		r.Use(requireController)
		r.Get("/", handleCalendar)
		r.Post("/open", handleOpen)
		r.Post("/reveal/{id}", handleRevealID)
		r.Post("/unreveal", handleUnreveal)
		r.Post("/reveal-all", handleRevealAll)
		r.Put("/featured", handleFeatured)
		r.Post("/reload", handleReload)
		r.Get("/wheel/history", handleWheelHistory)
		r.Post("/wheel/{id}/spin", handleSpin)
		r.Post("/wheel/{id}/settle", handleSettle)
		r.Delete("/wheel/{id}", handleClearWheel)
	})

	r.Get("/api/status", handleStatus)

	r.Route("/api/logs", func(r chi.Router) {
		r.Get("/", handleLogs)
		r.Get("/download", handleLogsDownload)
		r.Get("/stream", handleLogsStream)
		r.Post("/clear", handleLogsClear)
	})

	r.Route("/api/settings", func(r chi.Router) {
		r.Get("/", handleGetSettings)
		r.Put("/", handleUpdateSettings)
		r.Get("/status", handleSettingsStatus)
	})

	r.Route("/api/cache", func(r chi.Router) {
		r.Get("/stats", handleCacheStats)
		r.Post("/clear", handleCacheClear)
		r.Post("/cleanup", handleCacheCleanup)
	})

	r.Get("/api/share/qr", handleShareQR)

	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(http.Dir(currentImagesDir()))))
	r.Get("/thumbs/{size}/*", handleThumbnail)

	r.Get("/ws", handleWS)

	return r
}

func StartWebServer(port int) error {
	StartWSHub()

	addr := fmt.Sprintf(":%d", port)

	// 起動メッセージを表示（logger出力の前に）
	fmt.Println("")
	fmt.Println("====================================================")
	fmt.Printf("🎁 プレゼントカレンダーが起動しました\n")
	fmt.Printf("📡 API:       http://localhost:%d/api/calendar\n", port)
	fmt.Printf("   WebSocket: ws://localhost:%d/ws\n", port)
	fmt.Printf("\n")
	fmt.Printf("🔧 環境変数 SERVER_PORT で変更可能\n")
	fmt.Println("====================================================")
	fmt.Println("")

	logger.Info("Starting web server", zap.String("address", addr))

	httpServer = &http.Server{
		Addr:         addr,
		Handler:      NewRouter(),
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine and wait briefly to check for immediate errors
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			logger.Error("Failed to start web server", zap.Error(err))
			return fmt.Errorf("failed to start web server on port %d: %w", port, err)
		}
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
	}

	return nil
}

// Shutdown gracefully shuts down the web server
func Shutdown() {
	if httpServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown web server gracefully", zap.Error(err))
	} else {
		logger.Info("Web server shutdown complete")
	}
}

func requireController(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calendarCtl == nil {
			writeError(w, http.StatusServiceUnavailable, "calendar is not initialized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Failed to encode JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// hostname はステータス表示用
func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
