package task

import "sync"

// Slot 时间轮槽位
type Slot struct {
	mu    sync.Mutex
	tasks map[string]*Task // key: taskID
}

// NewSlot 创建新槽位
func NewSlot() *Slot {
	return &Slot{
		tasks: make(map[string]*Task),
	}
}

// AddTask 添加任务到槽位
func (s *Slot) AddTask(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task
}

// RemoveTask 从槽位删除任务
func (s *Slot) RemoveTask(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[taskID]; exists {
		delete(s.tasks, taskID)
		return true
	}
	return false
}

// Expire 取出圈数已归零的任务，其余任务圈数减一
func (s *Slot) Expire() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) == 0 {
		return nil
	}

	var expired []*Task
	for id, task := range s.tasks {
		if task.rounds > 0 {
			task.rounds--
			continue
		}
		expired = append(expired, task)
		delete(s.tasks, id)
	}

	return expired
}

// Count 获取槽位任务数量
func (s *Slot) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}
