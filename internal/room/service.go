package room

import (
	"context"
	"errors"
	"log/slog"

	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/identity"
	"sudooom.trivia/internal/model"
	apperrors "sudooom.trivia/pkg/errors"
)

// Service 注册边界与房间协程之间的入口
// HTTP/WebSocket/WebTransport 都通过它创建房间、加入房间、绑定连接
type Service struct {
	store    *identity.Store
	manager  *Manager
	registry *connection.Registry
	logger   *slog.Logger
}

// NewService 创建房间服务
func NewService(store *identity.Store, manager *Manager, registry *connection.Registry) *Service {
	return &Service{
		store:    store,
		manager:  manager,
		registry: registry,
		logger:   slog.Default().With("component", "RoomService"),
	}
}

// Create 创建房间，调用者成为房主
func (s *Service) Create(playerName string) (identity.Registration, error) {
	reg, err := s.store.CreateRoom(playerName)
	if err != nil {
		return identity.Registration{}, toAppError(err)
	}

	s.manager.Open(reg.RoomID, reg.PlayerID)
	s.logger.Info("Room created", "roomId", reg.RoomID, "host", reg.PlayerID)
	return reg, nil
}

// Join 注册新玩家并通知房间
func (s *Service) Join(roomID, playerName string) (identity.Registration, error) {
	r, ok := s.manager.Get(roomID)
	if !ok {
		return identity.Registration{}, apperrors.ErrRoomNotFound
	}

	reg, err := s.store.Join(roomID, playerName)
	if err != nil {
		return identity.Registration{}, toAppError(err)
	}

	if err := r.PlayerJoined(reg.PlayerID, reg.Seq); err != nil {
		if errors.Is(err, ErrGameStarted) {
			return identity.Registration{}, apperrors.ErrGameStarted
		}
		return identity.Registration{}, apperrors.ErrRoomNotFound.Wrap(err)
	}

	s.logger.Info("Player joined", "roomId", roomID, "playerId", reg.PlayerID)
	return reg, nil
}

// State 房间当前快照
func (s *Service) State(ctx context.Context, roomID string) (model.RoomState, error) {
	r, ok := s.manager.Get(roomID)
	if !ok {
		return model.RoomState{}, apperrors.ErrRoomNotFound
	}
	state, err := r.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, ErrRoomClosed) {
			return model.RoomState{}, apperrors.ErrRoomNotFound
		}
		return model.RoomState{}, apperrors.ErrServerError.Wrap(err)
	}
	return state, nil
}

// Attach 校验身份并绑定实时连接，返回房间
// 失败时返回的错误可通过 CloseCode 转换为关闭码
func (s *Service) Attach(roomID, playerID, token string, conn connection.Conn) (*Room, error) {
	if _, err := s.store.Authenticate(roomID, playerID, token); err != nil {
		return nil, toAppError(err)
	}

	r, ok := s.manager.Get(roomID)
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}

	if err := s.registry.Attach(roomID, playerID, conn); err != nil {
		return nil, toAppError(err)
	}

	if err := r.Connected(playerID); err != nil {
		s.registry.Detach(roomID, playerID, conn.ID())
		return nil, apperrors.ErrRoomNotFound.Wrap(err)
	}

	s.logger.Debug("Connection attached", "roomId", roomID, "playerId", playerID, "connId", conn.ID())
	return r, nil
}

// Detach 解绑连接；只有当前绑定的连接才会触发房间的断线处理
func (s *Service) Detach(r *Room, playerID string, conn connection.Conn) {
	if !s.registry.Detach(r.ID(), playerID, conn.ID()) {
		return
	}
	if err := r.Disconnected(playerID); err != nil && !errors.Is(err, ErrRoomClosed) {
		s.logger.Warn("Failed to notify disconnect", "roomId", r.ID(), "playerId", playerID, "error", err)
	}
}

// CloseCode 绑定失败对应的实时通道关闭码
func CloseCode(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeRoomNotFound:
		return connection.CloseRoomNotFound
	case apperrors.CodeAlreadyConnected:
		return connection.CloseAlreadyConnected
	case apperrors.CodeTokenInvalid, apperrors.CodeNotRegistered:
		return connection.CloseNotRegistered
	}
	return connection.CloseNotRegistered
}

// toAppError 把各层哨兵错误转换为带错误码的 AppError
func toAppError(err error) error {
	switch {
	case errors.Is(err, identity.ErrRoomNotFound):
		return apperrors.ErrRoomNotFound
	case errors.Is(err, identity.ErrNameTaken):
		return apperrors.ErrNameTaken
	case errors.Is(err, identity.ErrGameStarted):
		return apperrors.ErrGameStarted
	case errors.Is(err, identity.ErrInvalidName):
		return apperrors.ErrInvalidParams.Wrap(err)
	case errors.Is(err, identity.ErrNotRegistered):
		return apperrors.ErrNotRegistered
	case errors.Is(err, identity.ErrTokenInvalid):
		return apperrors.ErrTokenInvalid
	case errors.Is(err, identity.ErrRoomLimitExceeded):
		return apperrors.ErrRoomLimitExceeded
	case errors.Is(err, connection.ErrAlreadyConnected):
		return apperrors.ErrAlreadyConnected
	}
	return apperrors.ErrServerError.Wrap(err)
}
