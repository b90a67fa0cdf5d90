package connection

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/quic-go/webtransport-go"
)

const (
	// HeaderSize 4 字节长度 + 2 字节帧类型
	HeaderSize = 6

	// MaxFrameSize 单帧上限
	MaxFrameSize = 64 * 1024

	FrameHeartbeat uint16 = 0
	FrameAttach    uint16 = 1
	FrameMessage   uint16 = 10
)

var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame 读取一帧
func ReadFrame(r io.Reader) (uint16, []byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(header[:4])
	frameType := binary.BigEndian.Uint16(header[4:6])
	if length > MaxFrameSize {
		return 0, nil, ErrFrameTooLarge
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return frameType, body, nil
}

// BuildFrame 构建一帧
func BuildFrame(frameType uint16, body []byte) []byte {
	frame := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(body)))
	binary.BigEndian.PutUint16(frame[4:6], frameType)
	copy(frame[HeaderSize:], body)
	return frame
}

type wtWriter struct {
	session *webtransport.Session
	stream  io.Writer
	mu      sync.Mutex
}

func (w *wtWriter) WriteFrame(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, err := w.stream.Write(BuildFrame(FrameMessage, data))
	return err
}

func (w *wtWriter) CloseWith(code int, reason string) error {
	return w.session.CloseWithError(webtransport.SessionErrorCode(code), reason)
}

// NewWebTransport 包装已完成绑定的 WebTransport 会话，下行消息写入客户端打开的双向流
func NewWebTransport(roomID, playerID string, session *webtransport.Session, stream io.Writer, queueSize int, logger *slog.Logger) *Connection {
	return newConnection(roomID, playerID, &wtWriter{session: session, stream: stream}, queueSize, 0, logger)
}
