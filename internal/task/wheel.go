package task

import (
	"sync"
	"time"
)

const (
	// DefaultTick 默认刻度
	DefaultTick = 100 * time.Millisecond
	// DefaultSlotCount 默认槽位数量（100ms * 600 = 一圈 60 秒）
	DefaultSlotCount = 600
)

// TimeWheel 多圈时间轮
type TimeWheel struct {
	tick        time.Duration
	slots       []*Slot
	currentSlot int
	index       map[string]int // taskID -> 槽位
	mu          sync.Mutex
	ticker      *time.Ticker
}

// NewTimeWheel 创建时间轮
func NewTimeWheel(tick time.Duration, slotCount int) *TimeWheel {
	if tick <= 0 {
		tick = DefaultTick
	}
	if slotCount <= 0 {
		slotCount = DefaultSlotCount
	}

	tw := &TimeWheel{
		tick:   tick,
		slots:  make([]*Slot, slotCount),
		index:  make(map[string]int),
		ticker: time.NewTicker(tick),
	}
	for i := range tw.slots {
		tw.slots[i] = NewSlot()
	}

	return tw
}

// AddTask 添加任务，同ID的旧任务会被替换
func (tw *TimeWheel) AddTask(task *Task) error {
	ticks := int((task.Delay + tw.tick - 1) / tw.tick)
	if ticks < 1 {
		ticks = 1
	}

	tw.mu.Lock()
	defer tw.mu.Unlock()

	if old, ok := tw.index[task.ID]; ok {
		tw.slots[old].RemoveTask(task.ID)
	}

	n := len(tw.slots)
	target := (tw.currentSlot + ticks) % n
	task.rounds = (ticks - 1) / n

	tw.slots[target].AddTask(task)
	tw.index[task.ID] = target

	return nil
}

// RemoveTask 删除任务
func (tw *TimeWheel) RemoveTask(taskID string) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	slot, ok := tw.index[taskID]
	if !ok {
		return false
	}
	delete(tw.index, taskID)

	return tw.slots[slot].RemoveTask(taskID)
}

// Tick 推进一格，返回到期任务
func (tw *TimeWheel) Tick() []*Task {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.currentSlot = (tw.currentSlot + 1) % len(tw.slots)
	expired := tw.slots[tw.currentSlot].Expire()
	for _, task := range expired {
		delete(tw.index, task.ID)
	}

	return expired
}

// GetCurrentSlot 获取当前槽位索引
func (tw *TimeWheel) GetCurrentSlot() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return tw.currentSlot
}

// Stop 停止时间轮
func (tw *TimeWheel) Stop() {
	tw.ticker.Stop()
}

// GetTicker 获取定时器
func (tw *TimeWheel) GetTicker() *time.Ticker {
	return tw.ticker
}

// GetTotalTaskCount 获取所有槽位的任务总数
func (tw *TimeWheel) GetTotalTaskCount() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	return len(tw.index)
}
