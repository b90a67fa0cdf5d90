package room

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"sudooom.trivia/internal/connection"
	"sudooom.trivia/internal/model"
)

type player struct {
	id           string
	seq          int
	connected    bool
	score        int
	lastReaction time.Time
}

type submission struct {
	answer     string
	at         time.Time
	verified   bool
	correct    bool
	delta      int
	verifyFail bool
}

// Room 单个房间的状态机
// 所有状态只在 run 协程内读写，外部通过事件队列交互
type Room struct {
	id       string
	deps     Deps
	settings Settings
	logger   *slog.Logger

	// 以下字段只由房间协程访问
	players       []*player // 加入顺序，首位为房主
	byID          map[string]*player
	status        model.RoomStatus
	config        model.RoomConfig
	questions     []model.Question
	index         int
	submissions   map[string]*submission
	questionStart time.Time
	deadline      time.Time
	generation    uint64
	loading       bool
	startedAt     time.Time
	winner        string
	closed        bool

	events     chan any
	timerC     chan struct{} // 事件队列满时的到期通知，容量 1
	firedGen   atomic.Uint64 // 代数 +1，0 表示无待处理
	done       chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	lastActive atomic.Int64
	onClose    func(roomID string)
}

func newRoom(id string, deps Deps, settings Settings, onClose func(string)) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		id:          id,
		deps:        deps,
		settings:    settings,
		logger:      slog.Default().With("component", "room", "roomId", id),
		byID:        make(map[string]*player),
		status:      model.StatusWaiting,
		config:      model.DefaultRoomConfig(),
		submissions: make(map[string]*submission),
		events:      make(chan any, settings.QueueSize),
		timerC:      make(chan struct{}, 1),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		onClose:     onClose,
	}
	r.touch()
	return r
}

func (r *Room) ID() string { return r.id }

// Done 房间销毁后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// LastActiveTime 最后一次处理事件的时间
func (r *Room) LastActiveTime() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

func (r *Room) touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

func (r *Room) start() {
	go r.run()
}

func (r *Room) run() {
	defer close(r.done)

	for {
		var ev any
		select {
		case ev = <-r.events:
		case <-r.timerC:
			gen := r.firedGen.Swap(0)
			if gen == 0 {
				continue
			}
			ev = timerFired{generation: gen - 1}
		}

		r.touch()
		r.dispatch(ev)
		if r.closed {
			return
		}
	}
}

// dispatch 单个事件的处理入口，panic 只影响当前事件
func (r *Room) dispatch(ev any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Room handler panic recovered",
				"event", ev,
				"panic", rec,
				"stack", string(debug.Stack()))
		}
	}()

	switch e := ev.(type) {
	case clientMessage:
		r.handleClientMessage(e)
	case playerJoined:
		r.handlePlayerJoined(e)
	case playerConnected:
		r.handleConnect(e.playerID)
	case playerDisconnected:
		r.handleDisconnect(e.playerID)
	case timerFired:
		r.handleTimer(e.generation)
	case questionsLoaded:
		r.handleQuestionsLoaded(e)
	case snapshotRequest:
		e.reply <- BuildSnapshot(r)
	case stopRequest:
		r.teardown(e.reason)
	default:
		r.logger.Warn("Unknown room event", "event", ev)
	}
}

// post 阻塞投递内部事件，房间已销毁时返回 ErrRoomClosed
func (r *Room) post(ev any) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}

	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// tryPost 非阻塞投递客户端消息，队列满时丢弃
func (r *Room) tryPost(ev any) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}

	select {
	case r.events <- ev:
		return nil
	default:
		return ErrRoomBusy
	}
}

// HandleMessage 解析客户端消息并投递，发送者身份已由连接层确认
func (r *Room) HandleMessage(playerID string, data []byte) error {
	env, err := model.Decode(data)
	if err != nil || env.Type == "" {
		return ErrBadMessage
	}
	return r.Deliver(playerID, env)
}

// Deliver 投递已解析的消息
func (r *Room) Deliver(playerID string, env model.Envelope) error {
	return r.tryPost(clientMessage{playerID: playerID, env: env, at: r.deps.now()})
}

// PlayerJoined 通知房间有新注册玩家，等待房间确认
func (r *Room) PlayerJoined(playerID string, seq int) error {
	reply := make(chan error, 1)
	if err := r.post(playerJoined{playerID: playerID, seq: seq, reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// Connected 玩家连接已绑定
func (r *Room) Connected(playerID string) error {
	return r.post(playerConnected{playerID: playerID})
}

// Disconnected 玩家连接已断开
func (r *Room) Disconnected(playerID string) error {
	return r.post(playerDisconnected{playerID: playerID})
}

// Snapshot 获取当前房间快照
func (r *Room) Snapshot(ctx context.Context) (model.RoomState, error) {
	reply := make(chan model.RoomState, 1)
	if err := r.post(snapshotRequest{reply: reply}); err != nil {
		return model.RoomState{}, err
	}

	select {
	case state := <-reply:
		return state, nil
	case <-r.done:
		return model.RoomState{}, ErrRoomClosed
	case <-ctx.Done():
		return model.RoomState{}, ctx.Err()
	}
}

// Stop 销毁房间
func (r *Room) Stop(reason string) {
	_ = r.post(stopRequest{reason: reason})
}

// arm 设置本阶段截止时间，回调只投递带代数的事件
func (r *Room) arm(d time.Duration) {
	gen := r.generation
	r.deadline = r.deps.now().Add(d)

	err := r.deps.Timer.Schedule(r.id, d, func() {
		r.fireTimer(gen)
	})
	if err != nil {
		r.logger.Error("Failed to schedule phase timer", "status", r.status, "error", err)
	}
}

// fireTimer 由共享的定时器协程调用，从不阻塞
// 优先按顺序进入事件队列，队列满时记入单独的槽位，槽位只保留最新代数
func (r *Room) fireTimer(gen uint64) {
	select {
	case <-r.done:
		return
	case r.events <- timerFired{generation: gen}:
		return
	default:
	}

	for {
		cur := r.firedGen.Load()
		if cur > gen || r.firedGen.CompareAndSwap(cur, gen+1) {
			break
		}
	}

	select {
	case r.timerC <- struct{}{}:
	default:
	}
}

// teardown 销毁房间：作废定时器、关闭连接、清理身份
func (r *Room) teardown(reason string) {
	if r.closed {
		return
	}
	r.closed = true
	r.generation++
	r.cancel()

	r.deps.Timer.Cancel(r.id)
	r.deps.Broadcaster.CloseRoom(r.id, connection.CloseRoomClosed, reason)
	if r.deps.Registrar != nil {
		r.deps.Registrar.RemoveRoom(r.id)
	}
	if r.onClose != nil {
		r.onClose(r.id)
	}
	if r.deps.Results != nil {
		r.deps.Results.Closed(r.id, reason)
	}

	r.logger.Info("Room closed", "reason", reason)
}

func (r *Room) broadcastState() {
	data, err := model.Encode(model.MsgRoomState, model.RoomStatePayload{RoomState: BuildSnapshot(r)})
	if err != nil {
		r.logger.Error("Failed to encode room state", "error", err)
		return
	}
	r.deps.Broadcaster.Broadcast(r.id, data)
}

func (r *Room) sendError(playerID, code, message string) {
	data, err := model.Encode(model.MsgError, model.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	r.deps.Broadcaster.SendTo(r.id, playerID, data)
}

func (r *Room) isHost(playerID string) bool {
	return len(r.players) > 0 && r.players[0].id == playerID
}

func (r *Room) currentQuestion() *model.Question {
	if r.index < 0 || r.index >= len(r.questions) {
		return nil
	}
	return &r.questions[r.index]
}

func (r *Room) connectedCount() int {
	n := 0
	for _, p := range r.players {
		if p.connected {
			n++
		}
	}
	return n
}
