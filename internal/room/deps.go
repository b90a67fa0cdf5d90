package room

import (
	"context"
	"time"

	"sudooom.trivia/internal/model"
	"sudooom.trivia/internal/verify"
)

// Timer 每个房间一个截止时间，重复 Schedule 会替换旧的
type Timer interface {
	Schedule(roomID string, d time.Duration, fn func()) error
	Cancel(roomID string)
}

// Broadcaster 房间连接的下行发送，全部为非阻塞入队
type Broadcaster interface {
	Broadcast(roomID string, data []byte) int
	SendTo(roomID, playerID string, data []byte) bool
	CloseRoom(roomID string, code int, reason string)
}

// QuestionSource 题库
type QuestionSource interface {
	Pick(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error)
}

// ResultSink 对局结果与房间关闭事件的下游，两个方法都不得阻塞
type ResultSink interface {
	Submit(result model.GameResult)
	Closed(roomID, reason string)
}

// Registrar 身份存储中与房间生命周期相关的操作
type Registrar interface {
	MarkStarted(roomID string)
	RemovePlayer(roomID, playerID string)
	RemoveRoom(roomID string)
}

// Deps 房间依赖，启动时构造一次后注入
type Deps struct {
	Verifier    verify.Verifier
	Timer       Timer
	Broadcaster Broadcaster
	Questions   QuestionSource
	Results     ResultSink // 可为 nil
	Registrar   Registrar  // 可为 nil
	Clock       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Settings 对局节奏
type Settings struct {
	QuestionTime     time.Duration
	ResultsTime      time.Duration
	ClosingTime      time.Duration
	ReactionCooldown time.Duration
	LoadTimeout      time.Duration
	QueueSize        int
}

// DefaultSettings 默认节奏
func DefaultSettings() Settings {
	return Settings{
		QuestionTime:     20 * time.Second,
		ResultsTime:      5 * time.Second,
		ClosingTime:      30 * time.Second,
		ReactionCooldown: 3000 * time.Millisecond,
		LoadTimeout:      10 * time.Second,
		QueueSize:        256,
	}
}
