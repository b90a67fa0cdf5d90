package room

import (
	"sudooom.trivia/internal/model"
)

// BuildSnapshot 把房间状态投影为下发结构，只读
// playing 阶段不包含任何答案，公布和结束阶段才带上正确答案与各玩家结果
func BuildSnapshot(r *Room) model.RoomState {
	reveal := r.status == model.StatusResults || r.status == model.StatusFinished

	state := model.RoomState{
		RoomID:        r.id,
		Status:        r.status,
		Players:       make([]model.PlayerState, 0, len(r.players)),
		Config:        r.config,
		QuestionIndex: r.index,
		QuestionCount: len(r.questions),
		Winner:        r.winner,
	}
	if r.status != model.StatusWaiting && !r.deadline.IsZero() {
		state.Deadline = r.deadline.UnixMilli()
	}

	for i, p := range r.players {
		ps := model.PlayerState{
			ID:        p.id,
			IsHost:    i == 0,
			Connected: p.connected,
			Score:     p.score,
		}

		if r.status != model.StatusWaiting {
			if sub, ok := r.submissions[p.id]; ok {
				ps.Answered = true
				if reveal {
					ps.Answer = displayAnswer(sub.answer)
					if sub.verified {
						correct := sub.correct
						ps.Correct = &correct
						ps.Delta = sub.delta
					}
				}
			}
		}

		state.Players = append(state.Players, ps)
	}

	if q := r.currentQuestion(); q != nil && r.status != model.StatusWaiting {
		qs := &model.QuestionState{
			Text:       q.Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Points:     q.PointValue(),
			TimeLimit:  r.questionTime(q).Milliseconds(),
		}
		if r.config.MultipleChoice {
			qs.Options = q.Options
		}
		if reveal {
			qs.Answer = q.Answer
		}
		state.Question = qs
	}

	return state
}
