package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrSchedulerRunning    = errors.New("SCHEDULER_ALREADY_RUNNING")
	ErrSchedulerNotRunning = errors.New("SCHEDULER_NOT_RUNNING")
	ErrInvalidTask         = errors.New("INVALID_TASK")
	ErrTaskNotFound        = errors.New("TASK_NOT_FOUND")
)

// Scheduler 时间轮调度器
type Scheduler struct {
	wheel      *TimeWheel
	workerPool *WorkerPool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
	running    bool
	runningMu  sync.RWMutex
}

// NewScheduler 创建调度器
func NewScheduler(tick time.Duration, slotCount, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		wheel:      NewTimeWheel(tick, slotCount),
		workerPool: NewWorkerPool(workerCount),
		ctx:        ctx,
		cancel:     cancel,
		logger:     slog.Default().With("component", "scheduler"),
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return ErrSchedulerRunning
	}
	s.running = true
	s.runningMu.Unlock()

	s.workerPool.Start()

	s.wg.Add(1)
	go s.tickLoop()

	s.logger.Info("Scheduler started", "tick", s.wheel.tick, "slots", len(s.wheel.slots))
	return nil
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := s.wheel.GetTicker()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

func (s *Scheduler) onTick() {
	tasks := s.wheel.Tick()
	if len(tasks) == 0 {
		return
	}

	s.logger.Debug("Tasks expired",
		"currentSlot", s.wheel.GetCurrentSlot(),
		"taskCount", len(tasks))

	s.workerPool.SubmitBatch(tasks)
}

// Stop 停止调度器，未到期任务被丢弃
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.wheel.Stop()
	s.workerPool.Stop()

	s.logger.Info("Scheduler stopped")
}

// AddTask 添加任务
func (s *Scheduler) AddTask(task *Task) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return ErrSchedulerNotRunning
	}
	if task == nil || task.ID == "" {
		return ErrInvalidTask
	}

	return s.wheel.AddTask(task)
}

// RemoveTask 删除任务
func (s *Scheduler) RemoveTask(taskID string) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return ErrSchedulerNotRunning
	}
	if !s.wheel.RemoveTask(taskID) {
		return ErrTaskNotFound
	}

	return nil
}

// IsRunning 检查调度器是否运行中
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	return s.running
}

// GetStats 获取调度器统计信息
func (s *Scheduler) GetStats() map[string]any {
	return map[string]any{
		"running":        s.IsRunning(),
		"currentSlot":    s.wheel.GetCurrentSlot(),
		"totalTaskCount": s.wheel.GetTotalTaskCount(),
		"workerCount":    s.workerPool.workerCount,
	}
}
