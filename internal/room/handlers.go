package room

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"sudooom.trivia/internal/model"
	"sudooom.trivia/internal/verify"
)

const maxAnswerLength = 256

func (r *Room) handleClientMessage(msg clientMessage) {
	if _, ok := r.byID[msg.playerID]; !ok {
		r.logger.Warn("Message from unknown player dropped", "playerId", msg.playerID, "type", msg.env.Type)
		return
	}

	switch msg.env.Type {
	case model.MsgStartGame:
		r.handleStart(msg.playerID)
	case model.MsgSubmitAnswer:
		var p model.SubmitAnswerPayload
		if err := json.Unmarshal(msg.env.Payload, &p); err != nil {
			r.logger.Debug("Malformed answer dropped", "playerId", msg.playerID, "error", err)
			return
		}
		r.handleAnswer(msg.playerID, p.Answer, msg.at)
	case model.MsgUpdateConfig:
		var p model.UpdateConfigPayload
		if err := json.Unmarshal(msg.env.Payload, &p); err != nil {
			r.logger.Debug("Malformed config dropped", "playerId", msg.playerID, "error", err)
			return
		}
		r.handleConfigUpdate(msg.playerID, p.Config)
	case model.MsgReaction:
		var p model.ReactionPayload
		if err := json.Unmarshal(msg.env.Payload, &p); err != nil {
			r.logger.Debug("Malformed reaction dropped", "playerId", msg.playerID, "error", err)
			return
		}
		r.handleReaction(msg.playerID, p.ReactionID, msg.at)
	default:
		r.logger.Debug("Unknown message type dropped", "playerId", msg.playerID, "type", msg.env.Type)
	}
}

// handleStart 房主开始游戏，题目异步加载后再进入 playing
func (r *Room) handleStart(playerID string) {
	if r.status != model.StatusWaiting {
		r.sendError(playerID, model.ErrCodeGameStarted, "game already started")
		return
	}
	if !r.isHost(playerID) {
		r.sendError(playerID, model.ErrCodeNotHost, "only the host can start the game")
		return
	}
	if r.loading {
		return
	}

	r.loading = true
	gen := r.generation
	filter := r.config.Filter()

	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.settings.LoadTimeout)
		defer cancel()

		questions, err := r.deps.Questions.Pick(ctx, filter)
		_ = r.post(questionsLoaded{
			generation:  gen,
			requestedBy: playerID,
			questions:   questions,
			err:         err,
		})
	}()
}

func (r *Room) handleQuestionsLoaded(ev questionsLoaded) {
	r.loading = false
	if ev.generation != r.generation || r.status != model.StatusWaiting {
		return
	}
	if ev.err != nil || len(ev.questions) == 0 {
		r.logger.Warn("No questions available", "filter", r.config.Filter(), "error", ev.err)
		r.sendError(ev.requestedBy, model.ErrCodeNoQuestions, "no questions match the room settings")
		return
	}

	r.questions = ev.questions
	r.index = 0
	for _, p := range r.players {
		p.score = 0
	}
	r.startedAt = r.deps.now()
	if r.deps.Registrar != nil {
		r.deps.Registrar.MarkStarted(r.id)
	}

	r.logger.Info("Game started", "questions", len(r.questions), "players", len(r.players))
	r.beginQuestion()
}

// beginQuestion 进入 playing 并清空本题提交
func (r *Room) beginQuestion() {
	r.generation++
	r.status = model.StatusPlaying
	r.submissions = make(map[string]*submission)
	r.questionStart = r.deps.now()

	r.arm(r.questionTime(r.currentQuestion()))
	r.broadcastState()
}

func (r *Room) questionTime(q *model.Question) time.Duration {
	if q != nil && q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return r.settings.QuestionTime
}

func (r *Room) answerMode(q *model.Question) verify.Mode {
	if r.config.MultipleChoice && len(q.Options) > 0 {
		return verify.ModeMultipleChoice
	}
	return verify.ModeFreeText
}

// handleAnswer 每个玩家每题只接受第一次提交
func (r *Room) handleAnswer(playerID, answer string, at time.Time) {
	if r.status != model.StatusPlaying {
		return
	}
	if _, dup := r.submissions[playerID]; dup {
		r.logger.Debug("Duplicate submission dropped", "playerId", playerID, "question", r.index)
		return
	}
	if utf8.RuneCountInString(answer) > maxAnswerLength {
		return
	}

	q := r.currentQuestion()
	if r.answerMode(q) == verify.ModeFreeText && !r.deps.Verifier.Ready() {
		r.sendError(playerID, model.ErrCodeAnswerUnverifiable, "answer verification is not available")
		return
	}

	r.submissions[playerID] = &submission{answer: answer, at: at}

	if r.quorumReached() {
		r.endQuestion()
		return
	}
	r.broadcastState()
}

// quorumReached 所有在线玩家都已提交
func (r *Room) quorumReached() bool {
	connected := 0
	for _, p := range r.players {
		if !p.connected {
			continue
		}
		connected++
		if _, ok := r.submissions[p.id]; !ok {
			return false
		}
	}
	return connected > 0
}

// endQuestion playing -> results：校验、计分、设置公布阶段截止时间
func (r *Room) endQuestion() {
	r.generation++
	q := r.currentQuestion()
	mode := r.answerMode(q)

	for _, p := range r.players {
		sub, ok := r.submissions[p.id]
		if !ok {
			continue
		}

		res, err := r.deps.Verifier.Verify(q.Answer, sub.answer, mode)
		if err != nil {
			sub.verifyFail = true
			r.logger.Error("Answer verification failed", "playerId", p.id, "error", err)
			continue
		}

		sub.verified = true
		sub.correct = res.Correct
		sub.delta = r.pointDelta(q, sub)
		p.score += sub.delta

		r.logger.Debug("Answer scored",
			"playerId", p.id,
			"correct", res.Correct,
			"stage", res.Stage,
			"delta", sub.delta)
	}

	r.status = model.StatusResults
	r.arm(r.settings.ResultsTime)
	r.broadcastState()
}

func (r *Room) handleTimer(gen uint64) {
	if gen != r.generation {
		r.logger.Debug("Stale timer ignored", "generation", gen, "current", r.generation)
		return
	}

	switch r.status {
	case model.StatusPlaying:
		r.endQuestion()
	case model.StatusResults:
		if r.index+1 < len(r.questions) {
			r.index++
			r.beginQuestion()
			return
		}
		r.finish()
	case model.StatusFinished:
		r.teardown("closing window elapsed")
	}
}

// finish 冻结分数、确定胜者、交给结果下游
func (r *Room) finish() {
	r.generation++
	r.status = model.StatusFinished
	r.winner = winner(r.players)

	r.arm(r.settings.ClosingTime)
	r.broadcastState()

	if r.deps.Results != nil {
		r.deps.Results.Submit(r.result())
	}
	r.logger.Info("Game finished", "winner", r.winner)
}

func (r *Room) result() model.GameResult {
	res := model.GameResult{
		RoomID:     r.id,
		Winner:     r.winner,
		Scores:     make(map[string]int, len(r.players)),
		Players:    make([]string, 0, len(r.players)),
		Questions:  len(r.questions),
		Config:     r.config,
		StartedAt:  r.startedAt.UnixMilli(),
		FinishedAt: r.deps.now().UnixMilli(),
	}
	for _, p := range r.players {
		res.Players = append(res.Players, p.id)
		res.Scores[p.id] = p.score
	}
	return res
}

// handleConfigUpdate 只在 waiting 阶段接受房主修改
func (r *Room) handleConfigUpdate(playerID string, raw map[string]json.RawMessage) {
	if r.status != model.StatusWaiting || r.loading {
		return
	}
	if !r.isHost(playerID) {
		r.logger.Debug("Config update from non-host dropped", "playerId", playerID)
		return
	}

	cfg, applied := r.config.Apply(raw)
	if len(applied) == 0 {
		return
	}
	r.config = cfg

	r.logger.Debug("Room config updated", "fields", applied)
	r.broadcastState()
}

// handleReaction 只在公布和结束阶段可用，不进入快照
func (r *Room) handleReaction(playerID string, reactionID int, at time.Time) {
	if r.status != model.StatusResults && r.status != model.StatusFinished {
		return
	}
	if !ValidReaction(reactionID) {
		return
	}

	p := r.byID[playerID]
	if !p.lastReaction.IsZero() && at.Sub(p.lastReaction) < r.settings.ReactionCooldown {
		r.logger.Debug("Reaction within cooldown dropped", "playerId", playerID)
		return
	}
	p.lastReaction = at

	data, err := model.Encode(model.MsgReaction, model.ReactionBroadcast{PlayerID: playerID, ReactionID: reactionID})
	if err != nil {
		return
	}
	r.deps.Broadcaster.Broadcast(r.id, data)
}

func (r *Room) handlePlayerJoined(ev playerJoined) {
	ev.reply <- r.addPlayer(ev.playerID, ev.seq)
}

// addPlayer 报名只在 waiting 阶段有效；晚到的注册从身份存储中撤销
func (r *Room) addPlayer(playerID string, seq int) error {
	if _, exists := r.byID[playerID]; exists {
		return nil
	}
	if r.status != model.StatusWaiting {
		r.logger.Info("Late join rejected", "playerId", playerID, "status", r.status)
		if r.deps.Registrar != nil {
			r.deps.Registrar.RemovePlayer(r.id, playerID)
		}
		return ErrGameStarted
	}

	p := &player{id: playerID, seq: seq}
	r.byID[p.id] = p
	r.players = append(r.players, p)
	sort.SliceStable(r.players, func(i, j int) bool {
		return r.players[i].seq < r.players[j].seq
	})

	r.broadcastState()
	return nil
}

func (r *Room) handleConnect(playerID string) {
	p, ok := r.byID[playerID]
	if !ok {
		r.logger.Warn("Connect for unknown player", "playerId", playerID)
		return
	}
	p.connected = true

	r.logger.Debug("Player connected", "playerId", playerID)
	r.broadcastState()
}

// handleDisconnect 全员离线立即销毁；playing 阶段重新判断是否全员已答
func (r *Room) handleDisconnect(playerID string) {
	p, ok := r.byID[playerID]
	if !ok || !p.connected {
		return
	}
	p.connected = false

	r.logger.Debug("Player disconnected", "playerId", playerID)

	if r.connectedCount() == 0 {
		r.teardown("room empty")
		return
	}
	if r.status == model.StatusPlaying && r.quorumReached() {
		r.endQuestion()
		return
	}
	r.broadcastState()
}

// displayAnswer 去掉首尾空白
func displayAnswer(s string) string {
	return strings.TrimSpace(s)
}
