package workerpool

import (
	"log/slog"
	"sync"
)

// Task 任务函数
type Task func()

// Pool 固定数量 worker 的任务池
// Shutdown 后不再接收新任务，已入队的任务会被执行完
type Pool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	logger    *slog.Logger
}

// New 创建 Worker Pool
// workers: worker 数量
// queueSize: 任务队列大小
func New(workers int, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := &Pool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		logger:    logger,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	pool.logger.Info("Worker pool started",
		"workers", workers,
		"queue_size", queueSize)

	return pool
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panic recovered",
				"worker_id", id,
				"panic", r)
		}
	}()
	task()
}

// TrySubmit 非阻塞提交，队列满或已关闭时返回 false
func (p *Pool) TrySubmit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.taskQueue <- task:
		return true
	default:
		return false
	}
}

// Pending 队列中等待执行的任务数
func (p *Pool) Pending() int {
	return len(p.taskQueue)
}

// Shutdown 停止接收任务并等待已入队任务执行完
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool shutdown completed")
}
