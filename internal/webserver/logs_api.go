package webserver

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"go.uber.org/zap"
)

// logClient is a log-stream subscriber. 書き込みは mu で直列化する
type logClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
	send chan logger.LogEntry
}

// LogStreamer はログ配信用のWebSocket接続を管理
type LogStreamer struct {
	clients    map[*logClient]bool
	broadcast  chan logger.LogEntry
	register   chan *logClient
	unregister chan *logClient
}

var logStreamer = &LogStreamer{
	clients:    make(map[*logClient]bool),
	broadcast:  make(chan logger.LogEntry, 256),
	register:   make(chan *logClient),
	unregister: make(chan *logClient),
}

func init() {
	go logStreamer.run()

	logger.SetBroadcastCallback(func(entry logger.LogEntry) {
		BroadcastLog(entry)
	})
}

func (ls *LogStreamer) run() {
	for {
		select {
		case client := <-ls.register:
			ls.clients[client] = true

		case client := <-ls.unregister:
			if _, ok := ls.clients[client]; ok {
				delete(ls.clients, client)
				close(client.send)
				client.conn.Close()
			}

		case entry := <-ls.broadcast:
			for client := range ls.clients {
				select {
				case client.send <- entry:
				default:
					// 遅いクライアントは取りこぼしてよい
				}
			}
		}
	}
}

// BroadcastLog sends a log entry to all log-stream clients.
// ここでログを出すと再帰するので何も出力しない
func BroadcastLog(entry logger.LogEntry) {
	select {
	case logStreamer.broadcast <- entry:
	default:
	}
}

// GET /api/logs
func handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	logs := logger.GetLogBuffer().GetRecent(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":      logs,
		"count":     len(logs),
		"timestamp": time.Now(),
	})
}

// GET /api/logs/download?format=json|text
func handleLogsDownload(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	buffer := logger.GetLogBuffer()
	stamp := time.Now().Format("20060102-150405")

	switch format {
	case "json":
		data, err := buffer.ToJSON()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to generate JSON")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=present-calendar-logs-%s.json", stamp))
		w.Write(data)

	case "text":
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=present-calendar-logs-%s.txt", stamp))
		w.Write([]byte(buffer.ToText()))

	default:
		writeError(w, http.StatusBadRequest, "invalid format. use 'json' or 'text'")
	}
}

// GET /api/logs/stream (WebSocket)
func handleLogsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade log stream to WebSocket", zap.Error(err))
		return
	}

	client := &logClient{
		conn: conn,
		send: make(chan logger.LogEntry, 256),
	}

	// 直近のログを先に積んでおく
	for _, entry := range logger.GetLogBuffer().GetRecent(50) {
		select {
		case client.send <- entry:
		default:
		}
	}

	logStreamer.register <- client
	defer func() {
		logStreamer.unregister <- client
	}()

	go client.writePump()

	// 接続維持のために読み続ける
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *logClient) writePump() {
	defer c.conn.Close()

	for entry := range c.send {
		c.mu.Lock()
		err := c.conn.WriteJSON(entry)
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// POST /api/logs/clear
func handleLogsClear(w http.ResponseWriter, r *http.Request) {
	logger.GetLogBuffer().Clear()
	logger.Info("Log buffer cleared")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Log buffer cleared",
	})
}
