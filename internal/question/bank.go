package question

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sudooom.trivia/internal/model"
)

var ErrNoQuestions = errors.New("NO_QUESTIONS")

// file YAML 题库文件结构
type file struct {
	Questions []model.Question `yaml:"questions"`
}

// Bank 内存题库
type Bank struct {
	questions []model.Question
}

// NewBank 从内存数据创建题库，丢弃缺少题面或答案的题目
func NewBank(questions []model.Question) *Bank {
	b := &Bank{questions: make([]model.Question, 0, len(questions))}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.Answer) == "" {
			continue
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if q.Difficulty == "" || q.Difficulty == model.DifficultyMixed {
			q.Difficulty = model.DifficultyMedium
		}
		b.questions = append(b.questions, q)
	}
	return b
}

// LoadFile 加载 YAML 题库
func LoadFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 题库
func Parse(data []byte) (*Bank, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	return NewBank(f.Questions), nil
}

// Len 题目数量
func (b *Bank) Len() int {
	return len(b.questions)
}

// All 全部题目
func (b *Bank) All() []model.Question {
	return append([]model.Question(nil), b.questions...)
}

// Pick 按条件随机选题
func (b *Bank) Pick(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []model.Question
	for _, q := range b.questions {
		if Matches(q, filter) {
			matched = append(matched, q)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoQuestions
	}

	rand.Shuffle(len(matched), func(i, j int) {
		matched[i], matched[j] = matched[j], matched[i]
	})

	n := filter.Count
	if n <= 0 || n > len(matched) {
		n = len(matched)
	}
	return matched[:n], nil
}

// Matches 题目是否满足选题条件
func Matches(q model.Question, filter model.QuestionFilter) bool {
	if filter.Difficulty != "" && filter.Difficulty != model.DifficultyMixed && q.Difficulty != filter.Difficulty {
		return false
	}
	if filter.Category != "" && !strings.EqualFold(q.Category, filter.Category) {
		return false
	}
	if filter.MultipleChoice && len(q.Options) < 2 {
		return false
	}
	return true
}
