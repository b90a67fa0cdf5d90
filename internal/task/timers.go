package task

import (
	"context"
	"time"
)

// Timers 房间级定时服务，每个房间同一时刻只保留一个截止时间
type Timers struct {
	scheduler *Scheduler
}

// NewTimers 基于调度器创建房间定时服务
func NewTimers(scheduler *Scheduler) *Timers {
	return &Timers{scheduler: scheduler}
}

func timerID(roomID string) string {
	return "room:" + roomID
}

// Schedule 设置房间截止时间，已有的截止时间被替换
func (t *Timers) Schedule(roomID string, d time.Duration, fn func()) error {
	task := NewTask(timerID(roomID), roomID, d, func(ctx context.Context, target string) error {
		fn()
		return nil
	})
	return t.scheduler.AddTask(task)
}

// Cancel 取消房间截止时间
func (t *Timers) Cancel(roomID string) {
	_ = t.scheduler.RemoveTask(timerID(roomID))
}

// Pending 返回当前等待中的截止时间数量
func (t *Timers) Pending() int {
	return t.scheduler.wheel.GetTotalTaskCount()
}
