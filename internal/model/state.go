package model

// RoomStatus 房间阶段
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusResults  RoomStatus = "results"
	StatusFinished RoomStatus = "finished"
)

// RoomState 下发给客户端的房间快照
type RoomState struct {
	RoomID        string         `json:"roomId"`
	Status        RoomStatus     `json:"status"`
	Players       []PlayerState  `json:"players"`
	Config        RoomConfig     `json:"config"`
	QuestionIndex int            `json:"questionIndex"`
	QuestionCount int            `json:"questionCount"`
	Question      *QuestionState `json:"question,omitempty"`
	Deadline      int64          `json:"deadline,omitempty"` // unix 毫秒
	Winner        string         `json:"winner,omitempty"`
}

// PlayerState 快照中的玩家
type PlayerState struct {
	ID        string `json:"id"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`
	Score     int    `json:"score"`
	Answered  bool   `json:"answered"`
	Answer    string `json:"answer,omitempty"`
	Correct   *bool  `json:"correct,omitempty"`
	Delta     int    `json:"delta,omitempty"`
}

// QuestionState 快照中的题目，答案只在公布阶段出现
type QuestionState struct {
	Text       string     `json:"text"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Options    []string   `json:"options,omitempty"`
	Points     int        `json:"points"`
	TimeLimit  int64      `json:"timeLimitMs"`
	Answer     string     `json:"answer,omitempty"`
}

// GameResult 一局结束后的结算，交给结果下游
type GameResult struct {
	RoomID     string         `json:"roomId"`
	Winner     string         `json:"winner"`
	Scores     map[string]int `json:"scores"`
	Players    []string       `json:"players"`
	Questions  int            `json:"questions"`
	Config     RoomConfig     `json:"config"`
	StartedAt  int64          `json:"startedAt"`
	FinishedAt int64          `json:"finishedAt"`
}
