package result

import (
	"context"
	"log/slog"
	"time"

	"sudooom.trivia/internal/model"
	"sudooom.trivia/internal/workerpool"
)

const DefaultTimeout = 5 * time.Second

// FinishedFunc 处理一局结果
type FinishedFunc func(ctx context.Context, result model.GameResult) error

// ClosedFunc 处理房间关闭
type ClosedFunc func(ctx context.Context, roomID, reason string) error

type finishedHandler struct {
	name string
	fn   FinishedFunc
}

type closedHandler struct {
	name string
	fn   ClosedFunc
}

// Dispatcher 把房间协程产生的结果异步分发给各下游（排行榜、NATS、对局历史）
// Submit/Closed 只做非阻塞入队，队列满时丢弃并记录日志
type Dispatcher struct {
	pool     *workerpool.Pool
	timeout  time.Duration
	finished []finishedHandler
	closed   []closedHandler
	logger   *slog.Logger
}

// NewDispatcher 创建分发器，handler 需在 Submit 之前注册完
func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := slog.Default().With("component", "results")
	return &Dispatcher{
		pool:    workerpool.New(workers, queueSize, logger),
		timeout: timeout,
		logger:  logger,
	}
}

// OnFinished 注册结果处理
func (d *Dispatcher) OnFinished(name string, fn FinishedFunc) {
	d.finished = append(d.finished, finishedHandler{name: name, fn: fn})
}

// OnClosed 注册关闭处理
func (d *Dispatcher) OnClosed(name string, fn ClosedFunc) {
	d.closed = append(d.closed, closedHandler{name: name, fn: fn})
}

// Submit 分发一局结果
func (d *Dispatcher) Submit(result model.GameResult) {
	for _, h := range d.finished {
		ok := d.pool.TrySubmit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := h.fn(ctx, result); err != nil {
				d.logger.Error("Result sink failed", "sink", h.name, "roomId", result.RoomID, "error", err)
			}
		})
		if !ok {
			d.logger.Warn("Result dropped, queue full", "sink", h.name, "roomId", result.RoomID)
		}
	}
}

// Closed 分发房间关闭事件
func (d *Dispatcher) Closed(roomID, reason string) {
	for _, h := range d.closed {
		ok := d.pool.TrySubmit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := h.fn(ctx, roomID, reason); err != nil {
				d.logger.Error("Close sink failed", "sink", h.name, "roomId", roomID, "error", err)
			}
		})
		if !ok {
			d.logger.Warn("Close event dropped, queue full", "sink", h.name, "roomId", roomID)
		}
	}
}

// Shutdown 执行完已入队的任务后返回
func (d *Dispatcher) Shutdown() {
	d.pool.Shutdown()
}
