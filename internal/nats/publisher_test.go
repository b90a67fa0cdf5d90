package nats

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.trivia/internal/model"
)

// 注意：需要运行中的 NATS，连接失败时跳过

func getTestConn(t *testing.T) *nats.Conn {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, nats.Timeout(time.Second))
	if err != nil {
		t.Skipf("跳过测试：无法连接 NATS: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestPublisher_Finished(t *testing.T) {
	nc := getTestConn(t)

	sub, err := nc.SubscribeSync(SubjectRoomFinished)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	p := NewPublisher(nc, "node-1")
	require.NoError(t, p.PublishFinished(model.GameResult{
		RoomID: "ROOM1",
		Winner: "alice",
		Scores: map[string]int{"alice": 100},
	}))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got model.GameResult
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "ROOM1", got.RoomID)
	assert.Equal(t, "alice", got.Winner)
}

func TestPublisher_Closed(t *testing.T) {
	nc := getTestConn(t)

	sub, err := nc.SubscribeSync(SubjectRoomClosed)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	p := NewPublisher(nc, "node-1")
	require.NoError(t, p.PublishClosed("ROOM1", "inactive"))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got RoomClosedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "ROOM1", got.RoomID)
	assert.Equal(t, "inactive", got.Reason)
	assert.Equal(t, "node-1", got.NodeID)
}
