package api

import (
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
)

// changeEvent is pushed to websocket clients when the equipment data changes
// on disk, so dashboards refresh without polling.
type changeEvent struct {
	Type      string `json:"type"`
	File      string `json:"file"`
	Timestamp string `json:"timestamp"`
}

// eventHub watches the data directory and fans change events out to
// connected websocket clients.
type eventHub struct {
	dataDir  string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func newEventHub(dataDir string) *eventHub {
	return &eventHub{
		dataDir: dataDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
		done:    make(chan struct{}),
	}
}

func (h *eventHub) start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(h.dataDir); err != nil {
		// The directory appears on first write; watch once it exists.
		log.Printf("[API] Data directory %s not watchable yet: %v", h.dataDir, err)
	}
	h.watcher = watcher

	go h.watchLoop()
	return nil
}

func (h *eventHub) stop() {
	close(h.done)
	if h.watcher != nil {
		h.watcher.Close()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

// watchLoop debounces bursts of write events into one broadcast. Tool
// executions rewrite two files back to back; clients need one refresh.
func (h *eventHub) watchLoop() {
	var timer *time.Timer
	var lastFile string

	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			lastFile = filepath.Base(event.Name)
			if timer != nil {
				timer.Stop()
			}
			file := lastFile
			timer = time.AfterFunc(250*time.Millisecond, func() {
				h.broadcast(changeEvent{
					Type:      "data_changed",
					File:      file,
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			})
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[API] Watcher error: %v", err)
		}
	}
}

func (h *eventHub) broadcast(event changeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("[API] Dropping websocket client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *eventHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] Websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("[API] Websocket client connected (%d total)", count)

	// Reader goroutine detects disconnects; inbound messages are ignored.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
