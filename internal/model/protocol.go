package model

import "encoding/json"

// 上行消息类型
const (
	MsgStartGame    = "START_GAME"
	MsgSubmitAnswer = "SUBMIT_ANSWER"
	MsgUpdateConfig = "UPDATE_CONFIG"
	MsgReaction     = "REACTION"
)

// 下行消息类型
const (
	MsgRoomState = "ROOM_STATE"
	MsgError     = "ERROR"
)

// 下行错误码
const (
	ErrCodeNotHost            = "NOT_HOST"
	ErrCodeGameStarted        = "GAME_ALREADY_STARTED"
	ErrCodeNoQuestions        = "NO_QUESTIONS"
	ErrCodeAnswerUnverifiable = "ANSWER_UNVERIFIABLE"
)

// Envelope 消息信封 {"type": T, "payload": {...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubmitAnswerPayload struct {
	Answer string `json:"answer"`
}

type UpdateConfigPayload struct {
	Config map[string]json.RawMessage `json:"config"`
}

type ReactionPayload struct {
	ReactionID int `json:"reactionId"`
}

type RoomStatePayload struct {
	RoomState RoomState `json:"roomState"`
}

type ReactionBroadcast struct {
	PlayerID   string `json:"playerId"`
	ReactionID int    `json:"reactionId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Encode 编码下行消息
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// Decode 解析上行消息信封
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}
