package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"standingwave/internal/core"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// safeWSConn serializes writes; the status stream and ping loop share it.
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) WritePing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

// WSStatusHandler streams turn and pulse events to the collaborator UI.
func WSStatusHandler(cr *core.Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[API] WebSocket upgrade failed: %v", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()

		events, cancel := cr.Hub().Subscribe()
		defer cancel()

		// Drain reads so close frames are noticed.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := rawConn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(evt); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WritePing(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
