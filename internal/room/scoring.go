package room

import (
	"sudooom.trivia/internal/model"
)

// pointDelta 答对得题目分值；开启速度加分时额外获得 分值/2 × 剩余时间比例
func (r *Room) pointDelta(q *model.Question, sub *submission) int {
	if !sub.correct {
		return 0
	}

	points := q.PointValue()
	if !r.config.SpeedBonus {
		return points
	}

	budget := r.questionTime(q)
	remaining := budget - sub.at.Sub(r.questionStart)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > budget {
		remaining = budget
	}

	return points + int(float64(points)/2*float64(remaining)/float64(budget))
}

// winner 最高分，同分取最早加入者
func winner(players []*player) string {
	var best *player
	for _, p := range players {
		if best == nil || p.score > best.score || (p.score == best.score && p.seq < best.seq) {
			best = p
		}
	}
	if best == nil {
		return ""
	}
	return best.id
}
