package nats

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"sudooom.trivia/internal/model"
)

// Subject 常量
const (
	// SubjectRoomFinished 一局结束，负载为 model.GameResult
	SubjectRoomFinished = "trivia.room.finished"
	// SubjectRoomClosed 房间销毁，负载为 RoomClosedEvent
	SubjectRoomClosed = "trivia.room.closed"
)

// RoomClosedEvent 房间关闭事件
type RoomClosedEvent struct {
	RoomID   string `json:"roomId"`
	Reason   string `json:"reason"`
	NodeID   string `json:"nodeId"`
	ClosedAt int64  `json:"closedAt"`
}

// Publisher 房间生命周期事件发布器
type Publisher struct {
	nc     *nats.Conn
	nodeID string
	logger *slog.Logger
}

// NewPublisher 创建发布器
func NewPublisher(nc *nats.Conn, nodeID string) *Publisher {
	return &Publisher{
		nc:     nc,
		nodeID: nodeID,
		logger: slog.Default().With("component", "nats"),
	}
}

// PublishFinished 发布对局结果
func (p *Publisher) PublishFinished(result model.GameResult) error {
	return p.publish(SubjectRoomFinished, result)
}

// PublishClosed 发布房间关闭事件
func (p *Publisher) PublishClosed(roomID, reason string) error {
	return p.publish(SubjectRoomClosed, RoomClosedEvent{
		RoomID:   roomID,
		Reason:   reason,
		NodeID:   p.nodeID,
		ClosedAt: time.Now().UnixMilli(),
	})
}

func (p *Publisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("Failed to marshal event", "subject", subject, "error", err)
		return err
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish event", "subject", subject, "error", err)
		return err
	}

	p.logger.Debug("Published event", "subject", subject)
	return nil
}
