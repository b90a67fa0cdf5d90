package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"sudooom.trivia/internal/config"
	"sudooom.trivia/internal/model"
)

const (
	// KeyWins 胜场排行
	KeyWins = "trivia:leaderboard:wins"
	// KeyBest 单局最高分排行
	KeyBest = "trivia:leaderboard:best"
	// KeyGames 参赛局数
	KeyGames = "trivia:leaderboard:games"

	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry 排行榜条目
type Entry struct {
	Rank      int    `json:"rank"`
	Player    string `json:"player"`
	Wins      int64  `json:"wins"`
	BestScore int64  `json:"bestScore"`
	Games     int64  `json:"games"`
}

// Board Redis 全局排行榜，玩家以显示名（小写）计
type Board struct {
	client *redis.Client
	logger *slog.Logger
}

// NewClient 按配置创建 Redis 客户端
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// New 创建排行榜
func New(client *redis.Client) *Board {
	return &Board{
		client: client,
		logger: slog.Default().With("component", "leaderboard"),
	}
}

func memberOf(playerID string) string {
	return strings.ToLower(playerID)
}

// Record 记录一局结果
func (b *Board) Record(ctx context.Context, result model.GameResult) error {
	if len(result.Players) == 0 {
		return nil
	}

	pipe := b.client.TxPipeline()
	for _, p := range result.Players {
		member := memberOf(p)
		pipe.ZIncrBy(ctx, KeyGames, 1, member)
		pipe.ZAddArgs(ctx, KeyBest, redis.ZAddArgs{
			GT:      true,
			Members: []redis.Z{{Score: float64(result.Scores[p]), Member: member}},
		})
	}
	if result.Winner != "" {
		pipe.ZIncrBy(ctx, KeyWins, 1, memberOf(result.Winner))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record game %s: %w", result.RoomID, err)
	}

	b.logger.Debug("Recorded game", "roomId", result.RoomID, "winner", result.Winner)
	return nil
}

// Top 按胜场降序返回前 limit 名
func (b *Board) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	wins, err := b.client.ZRevRangeWithScores(ctx, KeyWins, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(wins) == 0 {
		return []Entry{}, nil
	}

	pipe := b.client.Pipeline()
	bestCmds := make([]*redis.FloatCmd, len(wins))
	gameCmds := make([]*redis.FloatCmd, len(wins))
	for i, z := range wins {
		member := z.Member.(string)
		bestCmds[i] = pipe.ZScore(ctx, KeyBest, member)
		gameCmds[i] = pipe.ZScore(ctx, KeyGames, member)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(wins))
	for i, z := range wins {
		entries = append(entries, Entry{
			Rank:      i + 1,
			Player:    z.Member.(string),
			Wins:      int64(z.Score),
			BestScore: int64(bestCmds[i].Val()),
			Games:     int64(gameCmds[i].Val()),
		})
	}
	return entries, nil
}

// Ping 检查 Redis 连接
func (b *Board) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close 关闭连接
func (b *Board) Close() error {
	return b.client.Close()
}
