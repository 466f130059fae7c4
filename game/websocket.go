package game

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// websocketConnection serializes writes because ReadPump and WritePump may
// both end up closing the socket.
type websocketConnection struct {
	socket    *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (wc *websocketConnection) Write(data []byte) error {
	return wc.write(websocket.TextMessage, data)
}

func (wc *websocketConnection) Ping() error {
	return wc.write(websocket.PingMessage, nil)
}

func (wc *websocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *websocketConnection) Close(reason string) {
	wc.closeOnce.Do(func() {
		wc.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
		wc.socket.Close()
	})
}

func (wc *websocketConnection) write(messageType int, data []byte) error {
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	wc.socket.SetWriteDeadline(time.Now().Add(writeWait))
	return wc.socket.WriteMessage(messageType, data)
}

// NewWebsocketConnection wraps conn. The peer must answer a ping within
// pongWait or the next Read fails.
func NewWebsocketConnection(conn *websocket.Conn, pongWait time.Duration) *websocketConnection {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &websocketConnection{socket: conn}
}
