package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sudooom.trivia/internal/model"
)

func TestWinner_TieBreakByJoinOrder(t *testing.T) {
	players := []*player{
		{id: "alice", seq: 0, score: 300},
		{id: "bob", seq: 1, score: 500},
		{id: "carol", seq: 2, score: 500},
	}
	assert.Equal(t, "bob", winner(players))

	players[0].score = 500
	assert.Equal(t, "alice", winner(players))

	assert.Equal(t, "", winner(nil))
}

func TestPointDelta(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &Room{
		settings:      DefaultSettings(),
		config:        model.DefaultRoomConfig(),
		questionStart: start,
	}
	q := &model.Question{Difficulty: model.DifficultyHard, TimeLimit: 10 * time.Second}

	tests := []struct {
		name       string
		speedBonus bool
		correct    bool
		elapsed    time.Duration
		want       int
	}{
		{"wrong answer", false, false, time.Second, 0},
		{"correct without bonus", false, true, 9 * time.Second, 300},
		{"bonus immediately", true, true, 0, 450},
		{"bonus halfway", true, true, 5 * time.Second, 375},
		{"bonus after deadline", true, true, 12 * time.Second, 300},
		{"wrong with bonus", true, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.config.SpeedBonus = tt.speedBonus
			sub := &submission{correct: tt.correct, at: start.Add(tt.elapsed)}
			assert.Equal(t, tt.want, r.pointDelta(q, sub))
		})
	}
}
