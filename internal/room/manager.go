package room

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager 房间管理器
// 管理所有 Room 的生命周期，并淘汰长时间无人在线的房间
//
// 使用示例：
//
//	manager := NewManager(deps, settings, 30*time.Minute, time.Minute)
//	r := manager.Open(roomID, hostID)
//	r.Connected(hostID)
type Manager struct {
	rooms sync.Map // roomID -> *Room

	deps     Deps
	settings Settings

	evictTimeout time.Duration
	evictTicker  *time.Ticker
	stopCh       chan struct{}
	stopOnce     sync.Once

	logger *slog.Logger
}

// NewManager 创建房间管理器
func NewManager(deps Deps, settings Settings, evictTimeout, evictCheckInterval time.Duration) *Manager {
	if settings.QueueSize <= 0 {
		settings.QueueSize = DefaultSettings().QueueSize
	}
	if settings.LoadTimeout <= 0 {
		settings.LoadTimeout = DefaultSettings().LoadTimeout
	}
	if evictCheckInterval <= 0 {
		evictCheckInterval = time.Minute
	}

	m := &Manager{
		deps:         deps,
		settings:     settings,
		evictTimeout: evictTimeout,
		evictTicker:  time.NewTicker(evictCheckInterval),
		stopCh:       make(chan struct{}),
		logger:       slog.Default().With("component", "RoomManager"),
	}

	go m.evictLoop()

	return m
}

// Open 创建房间协程并登记房主
func (m *Manager) Open(roomID, hostID string) *Room {
	if existing, ok := m.Get(roomID); ok {
		return existing
	}

	r := newRoom(roomID, m.deps, m.settings, m.Remove)
	actual, loaded := m.rooms.LoadOrStore(roomID, r)
	if loaded {
		return actual.(*Room)
	}

	r.start()
	_ = r.PlayerJoined(hostID, 0)

	m.logger.Info("Room opened", "roomId", roomID, "host", hostID)
	return r
}

// Get 获取房间
func (m *Manager) Get(roomID string) (*Room, bool) {
	val, ok := m.rooms.Load(roomID)
	if !ok {
		return nil, false
	}
	return val.(*Room), true
}

// Remove 移除房间（房间销毁时回调）
func (m *Manager) Remove(roomID string) {
	m.rooms.Delete(roomID)
	m.logger.Info("Removed room", "roomId", roomID)
}

// Count 返回当前房间数
func (m *Manager) Count() int {
	count := 0
	m.rooms.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

func (m *Manager) evictLoop() {
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.evictTicker.C:
			m.evictInactive(time.Now())
		}
	}
}

// evictInactive 淘汰超时未活跃的房间
func (m *Manager) evictInactive(now time.Time) int {
	evicted := 0
	m.rooms.Range(func(key, value any) bool {
		r := value.(*Room)
		if now.Sub(r.LastActiveTime()) > m.evictTimeout {
			r.Stop("inactive")
			evicted++
			m.logger.Info("Evicted inactive room", "roomId", r.ID(), "lastActive", r.LastActiveTime())
		}
		return true
	})
	return evicted
}

// Shutdown 关闭所有房间
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() {
		m.evictTicker.Stop()
		close(m.stopCh)
	})

	var rooms []*Room
	m.rooms.Range(func(key, value any) bool {
		rooms = append(rooms, value.(*Room))
		return true
	})

	for _, r := range rooms {
		r.Stop("server shutdown")
	}
	for _, r := range rooms {
		select {
		case <-r.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.logger.Info("RoomManager shutdown complete", "rooms", len(rooms))
	return nil
}
