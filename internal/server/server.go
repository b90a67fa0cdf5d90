package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"sudooom.trivia/internal/config"
	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/room"
	apperrors "sudooom.trivia/pkg/errors"
)

const attachTimeout = 10 * time.Second

var (
	ErrAttachExpected = errors.New("ATTACH_EXPECTED")
	ErrBadAttach      = errors.New("BAD_ATTACH")
)

// Attacher 实时连接绑定，由 *room.Service 实现
type Attacher interface {
	Attach(roomID, playerID, token string, conn connection.Conn) (*room.Room, error)
	Detach(r *room.Room, playerID string, conn connection.Conn)
}

// attachRequest 首帧内容
type attachRequest struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// Server WebTransport 实时通道
// 客户端打开一个双向流，首帧为 attach 请求，此后所有上下行消息都走这个流
type Server struct {
	cfg      config.WebTransportConfig
	rooms    Attacher
	queue    int
	origins  []string
	logger   *slog.Logger
	wtServer *webtransport.Server
	wg       sync.WaitGroup
}

// New 创建 WebTransport 服务
func New(cfg config.WebTransportConfig, rooms Attacher, writeQueue int, allowedOrigins []string) *Server {
	return &Server{
		cfg:     cfg,
		rooms:   rooms,
		queue:   writeQueue,
		origins: allowedOrigins,
		logger:  slog.Default().With("component", "webtransport"),
	}
}

// Start 启动服务（阻塞）
func (s *Server) Start(ctx context.Context) error {
	tlsConf, selfSigned, err := loadTLSConfig(s.cfg.CertFile, s.cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("load tls config: %w", err)
	}
	if selfSigned {
		s.logger.Warn("No TLS certificate configured, using self-signed certificate")
	}

	quicConfig := &quic.Config{
		MaxIdleTimeout:  s.cfg.MaxIdleTimeout,
		KeepAlivePeriod: s.cfg.KeepAlivePeriod,
		EnableDatagrams: true,
	}

	s.wtServer = &webtransport.Server{
		H3: http3.Server{
			Addr:       s.cfg.Addr,
			TLSConfig:  tlsConf,
			QUICConfig: quicConfig,
		},
		CheckOrigin: s.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webtransport", func(w http.ResponseWriter, r *http.Request) {
		session, err := s.wtServer.Upgrade(w, r)
		if err != nil {
			s.logger.Warn("WebTransport upgrade failed", "error", err)
			return
		}
		s.wg.Add(1)
		go s.handleSession(ctx, session)
	})
	s.wtServer.H3.Handler = mux

	s.logger.Info("WebTransport server starting", "addr", s.cfg.Addr)
	return s.wtServer.ListenAndServe()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleSession(ctx context.Context, session *webtransport.Session) {
	defer s.wg.Done()

	acceptCtx, cancel := context.WithTimeout(ctx, attachTimeout)
	stream, err := session.AcceptStream(acceptCtx)
	cancel()
	if err != nil {
		session.CloseWithError(connection.CloseNotRegistered, "no stream")
		return
	}

	stream.SetReadDeadline(time.Now().Add(attachTimeout))
	req, err := readAttach(stream)
	if err != nil {
		s.logger.Debug("Attach frame rejected", "error", err)
		session.CloseWithError(connection.CloseNotRegistered, err.Error())
		return
	}
	stream.SetReadDeadline(time.Time{})

	conn := connection.NewWebTransport(req.RoomID, req.PlayerID, session, stream, s.queue, s.logger)

	r, err := s.rooms.Attach(req.RoomID, req.PlayerID, req.Token, conn)
	if err != nil {
		code := room.CloseCode(err)
		s.logger.Debug("Attach rejected", "roomId", req.RoomID, "playerId", req.PlayerID, "code", code, "error", err)
		conn.Close(code, apperrors.GetMessage(err))
		return
	}
	defer s.rooms.Detach(r, req.PlayerID, conn)

	s.readLoop(r, conn, stream)
	conn.Close(connection.CloseNormal, "stream closed")
}

func (s *Server) readLoop(r *room.Room, conn *connection.Connection, stream io.Reader) {
	for {
		frameType, body, err := connection.ReadFrame(stream)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("Stream read error", "connId", conn.ID(), "error", err)
			}
			return
		}
		conn.Touch()

		switch frameType {
		case connection.FrameHeartbeat:
		case connection.FrameMessage:
			if err := r.HandleMessage(conn.PlayerID(), body); err != nil {
				if errors.Is(err, room.ErrRoomClosed) {
					return
				}
				s.logger.Debug("Message dropped", "roomId", r.ID(), "playerId", conn.PlayerID(), "error", err)
			}
		default:
			s.logger.Debug("Unknown frame type", "frameType", frameType)
		}
	}
}

// readAttach 读取并校验首帧
func readAttach(r io.Reader) (attachRequest, error) {
	frameType, body, err := connection.ReadFrame(r)
	if err != nil {
		return attachRequest{}, err
	}
	if frameType != connection.FrameAttach {
		return attachRequest{}, ErrAttachExpected
	}

	var req attachRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return attachRequest{}, ErrBadAttach
	}
	req.RoomID = strings.ToUpper(strings.TrimSpace(req.RoomID))
	if req.RoomID == "" || req.PlayerID == "" || req.Token == "" {
		return attachRequest{}, ErrBadAttach
	}
	return req, nil
}

// Shutdown 关闭服务并等待会话协程退出
func (s *Server) Shutdown() {
	if s.wtServer != nil {
		s.wtServer.Close()
	}
	s.wg.Wait()
}
