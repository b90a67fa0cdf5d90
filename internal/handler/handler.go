package handler

import (
	"context"

	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/identity"
	"sudooom.trivia/internal/leaderboard"
	"sudooom.trivia/internal/model"
	"sudooom.trivia/internal/repository"
	"sudooom.trivia/internal/room"
)

// RoomService 房间入口，由 *room.Service 实现
type RoomService interface {
	Create(playerName string) (identity.Registration, error)
	Join(roomID, playerName string) (identity.Registration, error)
	State(ctx context.Context, roomID string) (model.RoomState, error)
	Attach(roomID, playerID, token string, conn connection.Conn) (*room.Room, error)
	Detach(r *room.Room, playerID string, conn connection.Conn)
}

// Leaderboard 排行榜查询，由 *leaderboard.Board 实现
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]leaderboard.Entry, error)
}

// MatchHistory 对局历史查询，由 *repository.MatchRepository 实现
type MatchHistory interface {
	Recent(ctx context.Context, limit int) ([]repository.MatchRecord, error)
}

// JoinRequest 创建/加入房间请求
type JoinRequest struct {
	PlayerName string `json:"playerName" binding:"required"`
}

// JoinResponse 注册结果，token 用于实时通道绑定与重连
type JoinResponse struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
	IsHost   bool   `json:"isHost"`
}

func toJoinResponse(reg identity.Registration) JoinResponse {
	return JoinResponse{
		RoomID:   reg.RoomID,
		PlayerID: reg.PlayerID,
		Token:    reg.Token,
		IsHost:   reg.IsHost,
	}
}
