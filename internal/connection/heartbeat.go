package connection

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatChecker 空闲连接检测器
type HeartbeatChecker struct {
	registry      *Registry
	timeout       time.Duration
	checkInterval time.Duration
	logger        *slog.Logger
}

// NewHeartbeatChecker 创建检测器
func NewHeartbeatChecker(registry *Registry, timeout, checkInterval time.Duration, logger *slog.Logger) *HeartbeatChecker {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}

	return &HeartbeatChecker{
		registry:      registry,
		timeout:       timeout,
		checkInterval: checkInterval,
		logger:        logger,
	}
}

// Start 启动检测（阻塞，应在 goroutine 中调用）
func (h *HeartbeatChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	h.logger.Info("Heartbeat checker started",
		"timeout", h.timeout,
		"check_interval", h.checkInterval)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Heartbeat checker stopped")
			return
		case <-ticker.C:
			h.Check(time.Now())
		}
	}
}

// Check 关闭超时连接，返回关闭数量
// 连接关闭后由读循环负责 Detach 和通知房间
func (h *HeartbeatChecker) Check(now time.Time) int {
	closed := 0
	for _, conn := range h.registry.All() {
		if now.Sub(conn.LastActive()) > h.timeout {
			h.logger.Debug("Connection idle timeout",
				"conn_id", conn.ID(),
				"last_active", conn.LastActive())
			conn.Close(CloseIdle, "idle timeout")
			closed++
		}
	}

	if closed > 0 {
		h.logger.Info("Heartbeat check completed", "closed", closed)
	}
	return closed
}
