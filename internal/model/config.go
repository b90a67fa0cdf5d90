package model

import (
	"encoding/json"
	"strings"
)

const (
	RoomConfigVersion = 1

	MinQuestionCount = 1
	MaxQuestionCount = 50
	maxCategoryLen   = 64
)

// RoomConfig 房主可修改的房间设置
// 固定字段集合，未知字段忽略
type RoomConfig struct {
	Version        int        `json:"version"`
	Difficulty     Difficulty `json:"difficulty"`
	MultipleChoice bool       `json:"multipleChoice"`
	QuestionCount  int        `json:"questionCount"`
	Category       string     `json:"category"`
	SpeedBonus     bool       `json:"speedBonus"`
}

// DefaultRoomConfig 默认房间设置
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Version:       RoomConfigVersion,
		Difficulty:    DifficultyMixed,
		QuestionCount: 10,
	}
}

// Apply 合并客户端提交的设置，返回新配置与实际生效的字段
// 类型不符或越界的字段被忽略，其余字段照常生效
func (c RoomConfig) Apply(raw map[string]json.RawMessage) (RoomConfig, []string) {
	var applied []string

	for key, value := range raw {
		switch key {
		case "difficulty":
			var d Difficulty
			if json.Unmarshal(value, &d) == nil && d.Valid() {
				c.Difficulty = d
				applied = append(applied, key)
			}
		case "multipleChoice":
			var b bool
			if json.Unmarshal(value, &b) == nil {
				c.MultipleChoice = b
				applied = append(applied, key)
			}
		case "questionCount":
			var n int
			if json.Unmarshal(value, &n) == nil && n >= MinQuestionCount && n <= MaxQuestionCount {
				c.QuestionCount = n
				applied = append(applied, key)
			}
		case "category":
			var s string
			if json.Unmarshal(value, &s) == nil && len(s) <= maxCategoryLen {
				c.Category = strings.TrimSpace(s)
				applied = append(applied, key)
			}
		case "speedBonus":
			var b bool
			if json.Unmarshal(value, &b) == nil {
				c.SpeedBonus = b
				applied = append(applied, key)
			}
		}
	}

	c.Version = RoomConfigVersion
	return c, applied
}

// Filter 根据设置生成选题条件
func (c RoomConfig) Filter() QuestionFilter {
	return QuestionFilter{
		Difficulty:     c.Difficulty,
		Category:       c.Category,
		MultipleChoice: c.MultipleChoice,
		Count:          c.QuestionCount,
	}
}
