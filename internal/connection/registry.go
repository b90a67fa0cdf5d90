package connection

import (
	"sync"
)

// Registry (房间, 玩家) -> 活跃连接，每个玩家同一时刻只有一个连接
type Registry struct {
	rooms map[string]map[string]Conn // roomID -> playerID -> Conn
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Conn),
	}
}

// Attach 绑定连接，玩家已有活跃连接时返回 ErrAlreadyConnected
func (r *Registry) Attach(roomID, playerID string, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.rooms[roomID]
	if !ok {
		players = make(map[string]Conn)
		r.rooms[roomID] = players
	}
	if _, exists := players[playerID]; exists {
		return ErrAlreadyConnected
	}

	players[playerID] = conn
	return nil
}

// Detach 解绑连接，只有当前绑定的正是 connID 时才会移除
func (r *Registry) Detach(roomID, playerID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	conn, ok := players[playerID]
	if !ok || conn.ID() != connID {
		return false
	}

	delete(players, playerID)
	if len(players) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

func (r *Registry) Get(roomID, playerID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.rooms[roomID][playerID]
	return conn, ok
}

// SendTo 发送给单个玩家，不等待写出
func (r *Registry) SendTo(roomID, playerID string, data []byte) bool {
	conn, ok := r.Get(roomID, playerID)
	if !ok {
		return false
	}
	return conn.Send(data) == nil
}

// Broadcast 发送给房间内所有连接，返回成功入队的数量
func (r *Registry) Broadcast(roomID string, data []byte) int {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.rooms[roomID]))
	for _, conn := range r.rooms[roomID] {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	sent := 0
	for _, conn := range conns {
		if conn.Send(data) == nil {
			sent++
		}
	}
	return sent
}

// CloseRoom 关闭并移除房间内所有连接
func (r *Registry) CloseRoom(roomID string, code int, reason string) {
	r.mu.Lock()
	players := r.rooms[roomID]
	delete(r.rooms, roomID)
	r.mu.Unlock()

	for _, conn := range players {
		conn.Close(code, reason)
	}
}

// Count 连接总数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, players := range r.rooms {
		n += len(players)
	}
	return n
}

// All 返回所有连接（用于心跳检测）
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0)
	for _, players := range r.rooms {
		for _, conn := range players {
			conns = append(conns, conn)
		}
	}
	return conns
}
