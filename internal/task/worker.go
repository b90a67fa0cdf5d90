package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool 到期任务执行协程池
type WorkerPool struct {
	workerCount int
	taskChan    chan *Task
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// NewWorkerPool 创建工作协程池
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 8
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		taskChan:    make(chan *Task, workerCount*4),
		ctx:         ctx,
		cancel:      cancel,
		logger:      slog.Default().With("component", "timer-workers"),
	}
}

// Start 启动工作协程池
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.logger.Info("Timer worker pool started", "workerCount", wp.workerCount)
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task := <-wp.taskChan:
			if task == nil {
				continue
			}
			wp.executeTask(id, task)
		}
	}
}

// executeTask 执行任务，panic 不会影响其他任务
func (wp *WorkerPool) executeTask(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Timer task panic",
				"workerID", workerID,
				"taskID", task.ID,
				"target", task.Target,
				"panic", r)
		}
	}()

	if err := task.Execute(wp.ctx); err != nil {
		wp.logger.Error("Timer task failed",
			"workerID", workerID,
			"taskID", task.ID,
			"target", task.Target,
			"error", err)
	}
}

// Submit 提交任务，通道满时阻塞等待
func (wp *WorkerPool) Submit(task *Task) {
	select {
	case wp.taskChan <- task:
	case <-wp.ctx.Done():
		wp.logger.Warn("Worker pool stopped, task dropped", "taskID", task.ID)
	default:
		wp.logger.Warn("Timer task channel full, task delayed", "taskID", task.ID)
		select {
		case wp.taskChan <- task:
		case <-wp.ctx.Done():
		}
	}
}

// SubmitBatch 批量提交任务
func (wp *WorkerPool) SubmitBatch(tasks []*Task) {
	for _, task := range tasks {
		wp.Submit(task)
	}
}

// Stop 停止工作协程池
func (wp *WorkerPool) Stop() {
	wp.cancel()
	wp.wg.Wait()
	wp.logger.Info("Timer worker pool stopped")
}
