package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/room"
	apperrors "sudooom.trivia/pkg/errors"
)

const (
	maxMessageSize = connection.MaxFrameSize
	controlWait    = 10 * time.Second
)

// WSHandler WebSocket 实时通道
type WSHandler struct {
	rooms        RoomService
	upgrader     websocket.Upgrader
	queueSize    int
	pingInterval time.Duration
	logger       *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器，allowedOrigins 含 "*" 时不校验来源
// pingInterval 需小于心跳超时的一半，浏览器只回 pong 不会主动 ping
func NewWSHandler(rooms RoomService, allowedOrigins []string, queueSize int, pingInterval time.Duration) *WSHandler {
	h := &WSHandler{
		rooms:        rooms,
		queueSize:    queueSize,
		pingInterval: pingInterval,
		logger:       slog.Default().With("component", "websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkOrigin(allowedOrigins),
	}
	return h
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Connect 绑定玩家的实时连接
// @Summary      WebSocket 实时通道
// @Description  以 playerId + token 绑定房间，失败时以关闭码 4001/4004/4009 关闭
// @Tags         实时
// @Param        roomId    path   string  true  "房间码"
// @Param        playerId  query  string  true  "玩家名"
// @Param        token     query  string  true  "注册时返回的 token"
// @Router       /ws/{roomId} [get]
func (h *WSHandler) Connect(c *gin.Context) {
	roomID := roomIDParam(c)
	playerID := c.Query("playerId")
	token := c.Query("token")

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	conn := connection.NewWebSocket(roomID, playerID, ws, h.queueSize, h.pingInterval, h.logger)

	if playerID == "" || token == "" {
		conn.Close(connection.CloseNotRegistered, "missing credentials")
		return
	}

	r, err := h.rooms.Attach(roomID, playerID, token, conn)
	if err != nil {
		code := room.CloseCode(err)
		h.logger.Debug("Attach rejected", "roomId", roomID, "playerId", playerID, "code", code, "error", err)
		conn.Close(code, apperrors.GetMessage(err))
		return
	}
	defer h.rooms.Detach(r, playerID, conn)

	ws.SetReadLimit(maxMessageSize)
	ws.SetPingHandler(func(appData string) error {
		conn.Touch()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWait))
	})
	ws.SetPongHandler(func(string) error {
		conn.Touch()
		return nil
	})

	h.readLoop(r, conn, ws)
}

func (h *WSHandler) readLoop(r *room.Room, conn *connection.Connection, ws *websocket.Conn) {
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read error", "connId", conn.ID(), "error", err)
			}
			return
		}
		conn.Touch()

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		if err := r.HandleMessage(conn.PlayerID(), data); err != nil {
			switch {
			case errors.Is(err, room.ErrRoomClosed):
				return
			case errors.Is(err, room.ErrRoomBusy):
				h.logger.Warn("Room queue full, message dropped", "roomId", r.ID(), "playerId", conn.PlayerID())
			default:
				h.logger.Debug("Message dropped", "roomId", r.ID(), "playerId", conn.PlayerID(), "error", err)
			}
		}
	}
}
