package connection

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
	ErrAlreadyConnected = errors.New("ALREADY_CONNECTED")
)

// 实时通道关闭码
const (
	CloseNormal           = 1000
	CloseNotRegistered    = 4001
	CloseRoomNotFound     = 4004
	CloseSlowConsumer     = 4008
	CloseAlreadyConnected = 4009
	CloseRoomClosed       = 4010
	CloseIdle             = 4011
)

// Conn 房间内一个玩家的传输句柄
type Conn interface {
	ID() string
	Send(data []byte) error
	Close(code int, reason string)
	LastActive() time.Time
}

// frameWriter 底层传输
type frameWriter interface {
	WriteFrame(data []byte) error
	CloseWith(code int, reason string) error
}

// pinger 需要服务端主动探活的传输，浏览器不会自行发送 ping
type pinger interface {
	Ping() error
}

// Connection 带写队列的连接，写入由独立协程完成
type Connection struct {
	id           string
	roomID       string
	playerID     string
	writer       frameWriter
	logger       *slog.Logger
	writeChan    chan []byte
	closeChan    chan struct{}
	closeOnce    sync.Once
	lastActive   atomic.Int64
	pingInterval time.Duration // 0 表示不主动 ping
}

func newConnection(roomID, playerID string, writer frameWriter, queueSize int, pingInterval time.Duration, logger *slog.Logger) *Connection {
	if queueSize <= 0 {
		queueSize = 64
	}

	c := &Connection{
		id:           uuid.NewString(),
		roomID:       roomID,
		playerID:     playerID,
		writer:       writer,
		writeChan:    make(chan []byte, queueSize),
		closeChan:    make(chan struct{}),
		pingInterval: pingInterval,
	}
	c.logger = logger.With("connId", c.id, "roomId", roomID, "playerId", playerID)
	c.Touch()

	go c.writeLoop()
	return c
}

func (c *Connection) ID() string       { return c.id }
func (c *Connection) RoomID() string   { return c.roomID }
func (c *Connection) PlayerID() string { return c.playerID }

// Send 非阻塞入队，队列满时关闭该慢连接
func (c *Connection) Send(data []byte) error {
	select {
	case <-c.closeChan:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.writeChan <- data:
		return nil
	case <-c.closeChan:
		return ErrConnectionClosed
	default:
		c.logger.Warn("Send queue full, closing slow connection")
		c.Close(CloseSlowConsumer, "too slow")
		return ErrSendQueueFull
	}
}

func (c *Connection) writeLoop() {
	var pingC <-chan time.Time
	p, canPing := c.writer.(pinger)
	if canPing && c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	for {
		select {
		case data := <-c.writeChan:
			if err := c.writer.WriteFrame(data); err != nil {
				c.logger.Debug("Write failed", "error", err)
				c.Close(CloseNormal, "write failed")
				return
			}
		case <-pingC:
			if err := p.Ping(); err != nil {
				c.logger.Debug("Ping failed", "error", err)
				c.Close(CloseNormal, "ping failed")
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// Close 关闭连接，可重复调用；底层关闭异步完成，不阻塞调用方
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		go func() {
			if err := c.writer.CloseWith(code, reason); err != nil {
				c.logger.Debug("Close transport failed", "error", err)
			}
		}()
	})
}

// Done 连接关闭后返回
func (c *Connection) Done() <-chan struct{} {
	return c.closeChan
}

// Touch 刷新活跃时间
func (c *Connection) Touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}
