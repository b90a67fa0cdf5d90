package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawConfig(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestRoomConfig_Apply(t *testing.T) {
	base := DefaultRoomConfig()

	cfg, applied := base.Apply(rawConfig(t, `{"difficulty":"hard","multipleChoice":true,"unknown":123}`))

	assert.Equal(t, DifficultyHard, cfg.Difficulty)
	assert.True(t, cfg.MultipleChoice)
	assert.Equal(t, 10, cfg.QuestionCount)
	assert.ElementsMatch(t, []string{"difficulty", "multipleChoice"}, applied)
	assert.Equal(t, DifficultyMixed, base.Difficulty, "receiver must not change")
}

func TestRoomConfig_ApplyIgnoresInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"wrong type", `{"multipleChoice":"yes"}`},
		{"bad difficulty", `{"difficulty":"insane"}`},
		{"count too high", `{"questionCount":51}`},
		{"count zero", `{"questionCount":0}`},
		{"count fractional", `{"questionCount":2.5}`},
		{"only unknown", `{"theme":"dark"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, applied := DefaultRoomConfig().Apply(rawConfig(t, tt.raw))
			assert.Empty(t, applied)
			assert.Equal(t, DefaultRoomConfig(), cfg)
		})
	}
}

func TestRoomConfig_ApplyPartial(t *testing.T) {
	cfg, applied := DefaultRoomConfig().Apply(rawConfig(t, `{"questionCount":"five","category":" Science ","speedBonus":true}`))

	assert.Equal(t, 10, cfg.QuestionCount)
	assert.Equal(t, "Science", cfg.Category)
	assert.True(t, cfg.SpeedBonus)
	assert.Len(t, applied, 2)
}

func TestDifficulty_DefaultPoints(t *testing.T) {
	assert.Equal(t, 100, DifficultyEasy.DefaultPoints())
	assert.Equal(t, 200, DifficultyMedium.DefaultPoints())
	assert.Equal(t, 300, DifficultyHard.DefaultPoints())

	q := Question{Difficulty: DifficultyHard}
	assert.Equal(t, 300, q.PointValue())
	q.Points = 50
	assert.Equal(t, 50, q.PointValue())
}

func TestEncodeDecode(t *testing.T) {
	data, err := Encode(MsgReaction, ReactionBroadcast{PlayerID: "alice", ReactionID: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"REACTION","payload":{"playerId":"alice","reactionId":2}}`, string(data))

	env, err := Decode([]byte(`{"type":"SUBMIT_ANSWER","payload":{"answer":"Paris"}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgSubmitAnswer, env.Type)

	var p SubmitAnswerPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "Paris", p.Answer)
}
