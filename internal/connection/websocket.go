package connection

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
)

type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) WriteFrame(data []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping 由写协程定时调用，对端的 pong 会刷新活跃时间
func (w *wsWriter) Ping() error {
	return w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (w *wsWriter) CloseWith(code int, reason string) error {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	return w.conn.Close()
}

// NewWebSocket 包装已升级的 WebSocket 连接，每隔 pingInterval 发送一次 ping
func NewWebSocket(roomID, playerID string, ws *websocket.Conn, queueSize int, pingInterval time.Duration, logger *slog.Logger) *Connection {
	return newConnection(roomID, playerID, &wsWriter{conn: ws}, queueSize, pingInterval, logger)
}

// RejectWebSocket 在绑定前以指定关闭码拒绝连接
func RejectWebSocket(ws *websocket.Conn, code int, reason string) {
	w := &wsWriter{conn: ws}
	_ = w.CloseWith(code, reason)
}
