package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/model"
	"sudooom.trivia/internal/verify"
)

func TestStart_HostOnly(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})

	h.send("bob", model.MsgStartGame, struct{}{})
	s := h.state()
	assert.Equal(t, model.StatusWaiting, s.Status)

	errs := h.out.errorsFor(t, "bob")
	require.Len(t, errs, 1)
	assert.Equal(t, model.ErrCodeNotHost, errs[0].Code)

	h.startGame("alice")
	s = h.state()
	assert.Equal(t, 0, s.QuestionIndex)
	assert.Equal(t, 2, s.QuestionCount)
	assert.True(t, h.registrar.started["ROOM1"])

	d, ok := h.timer.Pending("ROOM1")
	require.True(t, ok)
	assert.Equal(t, DefaultSettings().QuestionTime, d)

	// 已开始后再次开始返回错误
	h.send("alice", model.MsgStartGame, struct{}{})
	h.state()
	errs = h.out.errorsFor(t, "alice")
	require.Len(t, errs, 1)
	assert.Equal(t, model.ErrCodeGameStarted, errs[0].Code)
}

func TestStart_NoQuestions(t *testing.T) {
	h := newHarness(t, []string{"alice"}, withQuestions(staticQuestions{err: errBankDown}))

	h.send("alice", model.MsgStartGame, struct{}{})

	require.Eventually(t, func() bool {
		return len(h.out.errorsFor(t, "alice")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, model.ErrCodeNoQuestions, h.out.errorsFor(t, "alice")[0].Code)
	assert.Equal(t, model.StatusWaiting, h.state().Status)
}

func TestEndToEnd_QuorumThenResultsThenNext(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "paris"})
	s := h.state()
	assert.Equal(t, model.StatusPlaying, s.Status)
	assert.True(t, h.player(s, "alice").Answered)
	assert.False(t, h.player(s, "bob").Answered)

	h.send("bob", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	s = h.state()

	// 全员已答，不等定时器直接进入 results
	require.Equal(t, model.StatusResults, s.Status)
	alice, bob := h.player(s, "alice"), h.player(s, "bob")
	assert.Equal(t, 200, alice.Delta)
	assert.Equal(t, alice.Delta, bob.Delta)
	assert.Equal(t, 200, alice.Score)
	require.NotNil(t, alice.Correct)
	assert.True(t, *alice.Correct)
	assert.Equal(t, "Paris", s.Question.Answer)

	d, ok := h.timer.Pending("ROOM1")
	require.True(t, ok)
	assert.Equal(t, DefaultSettings().ResultsTime, d)

	// 公布结束进入下一题
	h.fire()
	s = h.state()
	assert.Equal(t, model.StatusPlaying, s.Status)
	assert.Equal(t, 1, s.QuestionIndex)
	assert.False(t, h.player(s, "alice").Answered)

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "42"})
	h.send("bob", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "41"})
	s = h.state()
	require.Equal(t, model.StatusResults, s.Status)
	assert.Equal(t, 300, h.player(s, "alice").Score)
	assert.Equal(t, 200, h.player(s, "bob").Score)

	// 最后一题公布结束进入 finished
	h.fire()
	s = h.state()
	assert.Equal(t, model.StatusFinished, s.Status)
	assert.Equal(t, "alice", s.Winner)

	results := h.sink.all()
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].Winner)
	assert.Equal(t, map[string]int{"alice": 300, "bob": 200}, results[0].Scores)

	d, ok = h.timer.Pending("ROOM1")
	require.True(t, ok)
	assert.Equal(t, DefaultSettings().ClosingTime, d)

	// 关闭窗口结束后销毁房间
	h.fire()
	select {
	case <-h.room.Done():
	case <-time.After(time.Second):
		t.Fatal("room should be torn down after closing window")
	}
	assert.Equal(t, connection.CloseRoomClosed, h.out.closedRooms["ROOM1"])
	assert.True(t, h.registrar.isRemoved("ROOM1"))
	assert.Equal(t, []string{"ROOM1"}, h.sink.closedRooms())
	_, ok = h.manager.Get("ROOM1")
	assert.False(t, ok)
}

func TestTimerExpiryEndsQuestion(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	h.state()
	h.fire()

	s := h.state()
	require.Equal(t, model.StatusResults, s.Status)
	assert.Equal(t, 200, h.player(s, "alice").Score)
	assert.Equal(t, 0, h.player(s, "bob").Score)
	assert.False(t, h.player(s, "bob").Answered)
}

func TestStaleTimerIgnored(t *testing.T) {
	h := newHarness(t, []string{"alice"})
	h.startGame("alice")

	questionTimer := h.timer.Last()

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	require.Equal(t, model.StatusResults, h.state().Status)

	// 上一题的定时器晚到，不得推进房间
	questionTimer()
	s := h.state()
	assert.Equal(t, model.StatusResults, s.Status)
	assert.Equal(t, 0, s.QuestionIndex)
	assert.Equal(t, 200, h.player(s, "alice").Score)
}

func TestDuplicateSubmissionIgnored(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Rome"})
	h.send("bob", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Rome"})

	s := h.state()
	require.Equal(t, model.StatusResults, s.Status)
	alice := h.player(s, "alice")
	assert.Equal(t, "Paris", alice.Answer)
	assert.Equal(t, 200, alice.Score)

	// results 阶段的提交同样被丢弃
	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	assert.Equal(t, 200, h.player(h.state(), "alice").Score)
}

func TestAnswerRejectedWhenVerifierNotReady(t *testing.T) {
	h := newHarness(t, []string{"alice"}, withVerifier(notReadyVerifier{}))
	h.startGame("alice")

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	s := h.state()

	assert.Equal(t, model.StatusPlaying, s.Status)
	assert.False(t, h.player(s, "alice").Answered)
	errs := h.out.errorsFor(t, "alice")
	require.Len(t, errs, 1)
	assert.Equal(t, model.ErrCodeAnswerUnverifiable, errs[0].Code)
}

func TestMultipleChoiceBypassesVerifierReadiness(t *testing.T) {
	h := newHarness(t, []string{"alice"}, withVerifier(notReadyVerifier{}))
	h.send("alice", model.MsgUpdateConfig, map[string]any{"config": map[string]any{"multipleChoice": true}})
	h.startGame("alice")

	s := h.state()
	assert.Equal(t, []string{"Paris", "Rome", "Madrid"}, s.Question.Options)

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "paris"})
	s = h.state()
	require.Equal(t, model.StatusResults, s.Status)
	alice := h.player(s, "alice")
	require.NotNil(t, alice.Correct)
	assert.False(t, *alice.Correct, "multiple choice is case-sensitive")
}

func TestConfigUpdate(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})

	// 非房主修改被忽略
	h.send("bob", model.MsgUpdateConfig, map[string]any{"config": map[string]any{"difficulty": "hard"}})
	assert.Equal(t, model.DifficultyMixed, h.state().Config.Difficulty)
	assert.Empty(t, h.out.errorsFor(t, "bob"))

	// 房主修改：已知字段生效，未知字段忽略
	before := len(h.out.ofType(t, model.MsgRoomState))
	h.send("alice", model.MsgUpdateConfig, map[string]any{"config": map[string]any{
		"difficulty":    "hard",
		"questionCount": 1,
		"theme":         "dark",
	}})
	s := h.state()
	assert.Equal(t, model.DifficultyHard, s.Config.Difficulty)
	assert.Equal(t, 1, s.Config.QuestionCount)
	assert.Equal(t, before+1, len(h.out.ofType(t, model.MsgRoomState)), "update is broadcast")

	// 开始后修改被忽略
	h.startGame("alice")
	assert.Equal(t, 1, h.state().QuestionCount)
	h.send("alice", model.MsgUpdateConfig, map[string]any{"config": map[string]any{"difficulty": "easy"}})
	assert.Equal(t, model.DifficultyHard, h.state().Config.Difficulty)
}

func TestReactionCooldown(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})

	// waiting 阶段不可用
	h.send("alice", model.MsgReaction, model.ReactionPayload{ReactionID: 1})
	h.state()
	assert.Empty(t, h.out.reactions(t))

	h.startGame("alice")
	h.send("alice", model.MsgReaction, model.ReactionPayload{ReactionID: 1})
	h.state()
	assert.Empty(t, h.out.reactions(t), "reactions are not allowed while playing")

	h.fire()
	require.Equal(t, model.StatusResults, h.state().Status)
	statesBefore := len(h.out.ofType(t, model.MsgRoomState))

	h.send("alice", model.MsgReaction, model.ReactionPayload{ReactionID: 1})
	h.state()
	require.Len(t, h.out.reactions(t), 1)
	assert.Equal(t, model.ReactionBroadcast{PlayerID: "alice", ReactionID: 1}, h.out.reactions(t)[0])
	assert.Equal(t, statesBefore, len(h.out.ofType(t, model.MsgRoomState)), "reaction bypasses snapshot")

	h.clock.Advance(2999 * time.Millisecond)
	h.send("alice", model.MsgReaction, model.ReactionPayload{ReactionID: 2})
	h.state()
	assert.Len(t, h.out.reactions(t), 1, "second reaction within cooldown is dropped")

	// 冷却是按玩家计算的
	h.send("bob", model.MsgReaction, model.ReactionPayload{ReactionID: 2})
	h.state()
	assert.Len(t, h.out.reactions(t), 2)

	h.clock.Advance(time.Millisecond)
	h.send("alice", model.MsgReaction, model.ReactionPayload{ReactionID: 2})
	h.state()
	assert.Len(t, h.out.reactions(t), 3)

	// 未知表情被忽略
	h.clock.Advance(5 * time.Second)
	h.send("alice", model.MsgReaction, model.ReactionPayload{ReactionID: len(Reactions)})
	h.state()
	assert.Len(t, h.out.reactions(t), 3)
}

func TestDisconnect_ReevaluatesQuorum(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	require.NoError(t, h.room.Disconnected("bob"))

	s := h.state()
	assert.Equal(t, model.StatusResults, s.Status)
	assert.False(t, h.player(s, "bob").Connected)
}

func TestDisconnect_AllGoneTearsDown(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	require.NoError(t, h.room.Disconnected("alice"))
	require.NoError(t, h.room.Disconnected("bob"))

	select {
	case <-h.room.Done():
	case <-time.After(time.Second):
		t.Fatal("room should be torn down when empty")
	}

	assert.True(t, h.registrar.isRemoved("ROOM1"))
	assert.ErrorIs(t, h.room.Connected("alice"), ErrRoomClosed)
	_, err := h.room.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestReconnectKeepsScore(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")
	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	h.send("bob", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "x"})
	require.Equal(t, model.StatusResults, h.state().Status)

	require.NoError(t, h.room.Disconnected("alice"))
	require.NoError(t, h.room.Connected("alice"))

	s := h.state()
	assert.True(t, h.player(s, "alice").Connected)
	assert.Equal(t, 200, h.player(s, "alice").Score)
	assert.Equal(t, model.StatusResults, s.Status)
}

func TestSnapshotNeverLeaksAnswers(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})

	s := h.state()
	assert.Nil(t, s.Question)
	assert.True(t, h.player(s, "alice").IsHost)
	assert.False(t, h.player(s, "bob").IsHost)

	h.startGame("alice")
	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})

	s = h.state()
	require.NotNil(t, s.Question)
	assert.Empty(t, s.Question.Answer)
	assert.Nil(t, s.Question.Options, "options only in multiple choice mode")
	for _, p := range s.Players {
		assert.Empty(t, p.Answer)
		assert.Nil(t, p.Correct)
	}
	assert.NotZero(t, s.Deadline)
}

func TestLateJoinerInsertedByJoinOrder(t *testing.T) {
	h := newHarness(t, []string{"alice"})

	require.NoError(t, h.room.PlayerJoined("carol", 2))
	require.NoError(t, h.room.PlayerJoined("bob", 1))
	require.NoError(t, h.room.PlayerJoined("bob", 1))

	s := h.state()
	require.Len(t, s.Players, 3)
	assert.Equal(t, "alice", s.Players[0].ID)
	assert.Equal(t, "bob", s.Players[1].ID)
	assert.Equal(t, "carol", s.Players[2].ID)
	assert.False(t, s.Players[1].Connected)
}

func TestUnknownPlayerAndMalformedMessagesDropped(t *testing.T) {
	h := newHarness(t, []string{"alice"})

	require.NoError(t, h.room.HandleMessage("mallory", []byte(`{"type":"START_GAME"}`)))
	assert.ErrorIs(t, h.room.HandleMessage("alice", []byte(`not json`)), ErrBadMessage)
	assert.ErrorIs(t, h.room.HandleMessage("alice", []byte(`{"payload":{}}`)), ErrBadMessage)
	require.NoError(t, h.room.HandleMessage("alice", []byte(`{"type":"SUBMIT_ANSWER","payload":"oops"}`)))
	require.NoError(t, h.room.HandleMessage("alice", []byte(`{"type":"DANCE"}`)))

	assert.Equal(t, model.StatusWaiting, h.state().Status)
}

type panicVerifier struct{}

func (panicVerifier) Verify(expected, submitted string, mode verify.Mode) (verify.Result, error) {
	panic("verifier exploded")
}

func (panicVerifier) Ready() bool { return true }

func TestPanicInHandlerDoesNotKillRoom(t *testing.T) {
	h := newHarness(t, []string{"alice"}, withVerifier(panicVerifier{}))
	h.startGame("alice")

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})

	// 房间协程仍然存活并继续处理事件
	s := h.state()
	assert.Equal(t, "ROOM1", s.RoomID)
	require.NoError(t, h.room.Connected("alice"))
}

func TestJoinAfterStartRejected(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	// 身份存储的报名检查与开局并发时，房间是最终裁决者
	assert.ErrorIs(t, h.room.PlayerJoined("carol", 2), ErrGameStarted)
	assert.Equal(t, []string{"carol"}, h.registrar.removedPlayers())

	s := h.state()
	require.Len(t, s.Players, 2)

	h.send("alice", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Paris"})
	h.send("bob", model.MsgSubmitAnswer, model.SubmitAnswerPayload{Answer: "Rome"})
	assert.Equal(t, model.StatusResults, h.state().Status, "late joiner is not part of the quorum")
}

func TestTimerDoesNotBlockOnFullQueue(t *testing.T) {
	h := newHarness(t, []string{"alice", "bob"})
	h.startGame("alice")

	// 房间协程卡在无人接收的快照回复上，随后填满事件队列
	stuck := make(chan model.RoomState)
	require.NoError(t, h.room.post(snapshotRequest{reply: stuck}))
	for h.room.tryPost(snapshotRequest{reply: make(chan model.RoomState, 1)}) == nil {
	}

	fired := make(chan bool, 1)
	go func() {
		fired <- h.timer.Fire(h.room.ID())
	}()

	select {
	case ok := <-fired:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timer callback blocked on a full room queue")
	}

	<-stuck
	require.Eventually(t, func() bool {
		return h.state().Status == model.StatusResults
	}, time.Second, 5*time.Millisecond)
}
