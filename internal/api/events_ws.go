package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/annel0/voxelmesh/internal/eventbus"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var wsSessions atomic.Int64

// handleEventsWS транслирует события шины в WebSocket.
// ?types=ChunkMeshed,ChunkRemoved ограничивает типы; медленный клиент теряет события.
func (rs *RestServer) handleEventsWS(c *gin.Context) {
	if rs.bus == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Шина событий не настроена"})
		return
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rs.log.Warn("WebSocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	sid := wsSessions.Add(1)
	rs.log.Info("🔌 WS сессия %d подключена", sid)
	defer rs.log.Info("🔌 WS сессия %d отключена", sid)

	var filter eventbus.Filter
	if types := c.Query("types"); types != "" {
		filter.Types = strings.Split(types, ",")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []byte, 256)
	sub, err := rs.bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		b, err := json.Marshal(ev)
		if err != nil {
			return
		}
		select {
		case out <- b:
		default:
			// Клиент не успевает
		}
	})
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "bus unavailable"), time.Now().Add(time.Second))
		return
	}
	defer sub.Unsubscribe()

	// Writer goroutine.
	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Reader loop: входящие сообщения игнорируются, чтение нужно для close/ping
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
}
