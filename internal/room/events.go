package room

import (
	"time"

	"sudooom.trivia/internal/model"
)

// 房间事件，全部由房间协程顺序处理

type clientMessage struct {
	playerID string
	env      model.Envelope
	at       time.Time
}

// playerJoined 游戏已开始时回复 ErrGameStarted
type playerJoined struct {
	playerID string
	seq      int
	reply    chan error
}

type playerConnected struct {
	playerID string
}

type playerDisconnected struct {
	playerID string
}

// timerFired 携带设置时的代数，代数已变化时忽略
type timerFired struct {
	generation uint64
}

type questionsLoaded struct {
	generation  uint64
	requestedBy string
	questions   []model.Question
	err         error
}

type snapshotRequest struct {
	reply chan model.RoomState
}

type stopRequest struct {
	reason string
}
