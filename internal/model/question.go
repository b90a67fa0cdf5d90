package model

import "time"

// Difficulty 题目难度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed" // 仅用于房间配置
)

// Valid 是否为房间配置允许的难度
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyMixed:
		return true
	}
	return false
}

// DefaultPoints 难度对应的默认分值
func (d Difficulty) DefaultPoints() int {
	switch d {
	case DifficultyEasy:
		return 100
	case DifficultyHard:
		return 300
	default:
		return 200
	}
}

// Question 题目
type Question struct {
	ID         string        `json:"id" yaml:"id"`
	Text       string        `json:"text" yaml:"text"`
	Category   string        `json:"category" yaml:"category"`
	Answer     string        `json:"answer" yaml:"answer"`
	Options    []string      `json:"options,omitempty" yaml:"options"`
	Difficulty Difficulty    `json:"difficulty" yaml:"difficulty"`
	Points     int           `json:"points" yaml:"points"`
	TimeLimit  time.Duration `json:"timeLimit" yaml:"time_limit"`
}

// PointValue 题目分值，未配置时按难度取默认值
func (q *Question) PointValue() int {
	if q.Points > 0 {
		return q.Points
	}
	return q.Difficulty.DefaultPoints()
}

// QuestionFilter 选题条件
type QuestionFilter struct {
	Difficulty     Difficulty
	Category       string
	MultipleChoice bool
	Count          int
}
