package snowflake

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// 起始时间戳 (2025-01-01 00:00:00 UTC)
	epoch int64 = 1735689600000

	nodeBits     = 10
	sequenceBits = 12

	maxNodeID   = -1 ^ (-1 << nodeBits)
	maxSequence = -1 ^ (-1 << sequenceBits)

	nodeShift      = sequenceBits
	timestampShift = nodeBits + sequenceBits
)

// ID 雪花ID
type ID int64

// String 十进制字符串
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Code 大写 36 进制，用作房间码
func (id ID) Code() string {
	return strings.ToUpper(strconv.FormatInt(int64(id), 36))
}

// Int64 转换为 int64
func (id ID) Int64() int64 {
	return int64(id)
}

// Node 雪花ID生成器节点
type Node struct {
	mu       sync.Mutex
	nodeID   int64
	sequence int64
	lastTime int64
}

// NewNode 创建雪花ID生成器，越界的节点号回落为 1
func NewNode(nodeID int64) *Node {
	if nodeID < 0 || nodeID > maxNodeID {
		nodeID = 1
	}
	return &Node{nodeID: nodeID}
}

// Generate 生成雪花ID
func (n *Node) Generate() ID {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == n.lastTime {
		n.sequence = (n.sequence + 1) & maxSequence
		if n.sequence == 0 {
			// 序号用尽，等待下一毫秒
			for now <= n.lastTime {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.sequence = 0
	}

	n.lastTime = now

	return ID(((now - epoch) << timestampShift) |
		(n.nodeID << nodeShift) |
		n.sequence)
}
