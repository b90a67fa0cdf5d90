package room

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sudooom.trivia/internal/model"
	"sudooom.trivia/internal/verify"
)

type fakeTimer struct {
	mu        sync.Mutex
	pending   map[string]func()
	durations map[string]time.Duration
	history   []func()
	cancelled int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{
		pending:   make(map[string]func()),
		durations: make(map[string]time.Duration),
	}
}

func (f *fakeTimer) Schedule(roomID string, d time.Duration, fn func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[roomID] = fn
	f.durations[roomID] = d
	f.history = append(f.history, fn)
	return nil
}

func (f *fakeTimer) Cancel(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, roomID)
	f.cancelled++
}

// Fire 触发房间当前的截止时间
func (f *fakeTimer) Fire(roomID string) bool {
	f.mu.Lock()
	fn, ok := f.pending[roomID]
	delete(f.pending, roomID)
	f.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

func (f *fakeTimer) Pending(roomID string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pending[roomID]
	return f.durations[roomID], ok
}

func (f *fakeTimer) Last() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history[len(f.history)-1]
}

type sent struct {
	to   string // 空表示广播
	data []byte
}

type fakeBroadcaster struct {
	mu          sync.Mutex
	messages    []sent
	closedRooms map[string]int
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{closedRooms: make(map[string]int)}
}

func (f *fakeBroadcaster) Broadcast(roomID string, data []byte) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{data: data})
	return 1
}

func (f *fakeBroadcaster) SendTo(roomID, playerID string, data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{to: playerID, data: data})
	return true
}

func (f *fakeBroadcaster) CloseRoom(roomID string, code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closedRooms[roomID] = code
}

// ofType 返回指定类型的消息
func (f *fakeBroadcaster) ofType(t *testing.T, msgType string) []sent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []sent
	for _, m := range f.messages {
		env, err := model.Decode(m.data)
		require.NoError(t, err)
		if env.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBroadcaster) errorsFor(t *testing.T, playerID string) []model.ErrorPayload {
	t.Helper()
	var out []model.ErrorPayload
	for _, m := range f.ofType(t, model.MsgError) {
		if m.to != playerID {
			continue
		}
		env, _ := model.Decode(m.data)
		var p model.ErrorPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p)
	}
	return out
}

func (f *fakeBroadcaster) reactions(t *testing.T) []model.ReactionBroadcast {
	t.Helper()
	var out []model.ReactionBroadcast
	for _, m := range f.ofType(t, model.MsgReaction) {
		env, _ := model.Decode(m.data)
		var p model.ReactionBroadcast
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p)
	}
	return out
}

type staticQuestions struct {
	questions []model.Question
	err       error
}

func (s staticQuestions) Pick(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	n := filter.Count
	if n <= 0 || n > len(s.questions) {
		n = len(s.questions)
	}
	return append([]model.Question(nil), s.questions[:n]...), nil
}

type fakeSink struct {
	mu      sync.Mutex
	results []model.GameResult
	closed  []string
}

func (f *fakeSink) Closed(roomID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, roomID)
}

func (f *fakeSink) closedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.closed...)
}

func (f *fakeSink) Submit(result model.GameResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

func (f *fakeSink) all() []model.GameResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.GameResult(nil), f.results...)
}

type fakeRegistrar struct {
	mu       sync.Mutex
	started  map[string]bool
	removed  map[string]bool
	unjoined []string
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{started: make(map[string]bool), removed: make(map[string]bool)}
}

func (f *fakeRegistrar) MarkStarted(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[roomID] = true
}

func (f *fakeRegistrar) RemovePlayer(roomID, playerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unjoined = append(f.unjoined, playerID)
}

func (f *fakeRegistrar) removedPlayers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unjoined...)
}

func (f *fakeRegistrar) RemoveRoom(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed[roomID] = true
}

func (f *fakeRegistrar) isRemoved(roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removed[roomID]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// notReadyVerifier 模拟资源尚未加载的校验引擎
type notReadyVerifier struct{}

func (notReadyVerifier) Verify(expected, submitted string, mode verify.Mode) (verify.Result, error) {
	if mode == verify.ModeMultipleChoice {
		return verify.ExactVerifier{}.Verify(expected, submitted, mode)
	}
	return verify.Result{}, verify.ErrNotReady
}

func (notReadyVerifier) Ready() bool { return false }

var errBankDown = errors.New("bank down")

func testQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Text: "Capital of France?", Category: "geo", Answer: "Paris", Options: []string{"Paris", "Rome", "Madrid"}, Difficulty: model.DifficultyMedium},
		{ID: "q2", Text: "6 x 7?", Category: "math", Answer: "42", Options: []string{"42", "36"}, Difficulty: model.DifficultyEasy},
	}
}

type harness struct {
	t         *testing.T
	room      *Room
	timer     *fakeTimer
	out       *fakeBroadcaster
	sink      *fakeSink
	registrar *fakeRegistrar
	clock     *fakeClock
	manager   *Manager
}

type harnessOption func(*Deps)

func withVerifier(v verify.Verifier) harnessOption {
	return func(d *Deps) { d.Verifier = v }
}

func withQuestions(q QuestionSource) harnessOption {
	return func(d *Deps) { d.Questions = q }
}

// newHarness 创建房间，players 依次加入并连接，第一个为房主
func newHarness(t *testing.T, players []string, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		t:         t,
		timer:     newFakeTimer(),
		out:       newFakeBroadcaster(),
		sink:      &fakeSink{},
		registrar: newFakeRegistrar(),
		clock:     &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}

	deps := Deps{
		Verifier:    verify.ExactVerifier{},
		Timer:       h.timer,
		Broadcaster: h.out,
		Questions:   staticQuestions{questions: testQuestions()},
		Results:     h.sink,
		Registrar:   h.registrar,
		Clock:       h.clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	h.manager = NewManager(deps, DefaultSettings(), time.Hour, time.Hour)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.manager.Shutdown(ctx)
	})

	h.room = h.manager.Open("ROOM1", players[0])
	for i, p := range players[1:] {
		require.NoError(t, h.room.PlayerJoined(p, i+1))
	}
	for _, p := range players {
		require.NoError(t, h.room.Connected(p))
	}

	return h
}

func (h *harness) send(playerID, msgType string, payload any) {
	h.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(h.t, err)
	require.NoError(h.t, h.room.Deliver(playerID, model.Envelope{Type: msgType, Payload: raw}))
}

func (h *harness) state() model.RoomState {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := h.room.Snapshot(ctx)
	require.NoError(h.t, err)
	return s
}

func (h *harness) player(s model.RoomState, id string) model.PlayerState {
	h.t.Helper()
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	h.t.Fatalf("player %s not in snapshot", id)
	return model.PlayerState{}
}

// startGame 房主开始并等待进入 playing
func (h *harness) startGame(host string) {
	h.t.Helper()
	h.send(host, model.MsgStartGame, struct{}{})
	require.Eventually(h.t, func() bool {
		return h.state().Status == model.StatusPlaying
	}, time.Second, 5*time.Millisecond)
}

func (h *harness) fire() {
	h.t.Helper()
	require.True(h.t, h.timer.Fire(h.room.ID()), "no pending timer")
}
