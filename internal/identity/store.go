package identity

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"sudooom.trivia/internal/jwt"
)

var (
	ErrRoomNotFound      = errors.New("ROOM_NOT_FOUND")
	ErrNameTaken         = errors.New("NAME_TAKEN")
	ErrGameStarted       = errors.New("GAME_ALREADY_STARTED")
	ErrInvalidName       = errors.New("INVALID_PLAYER_NAME")
	ErrNotRegistered     = errors.New("PLAYER_NOT_REGISTERED")
	ErrTokenInvalid      = errors.New("TOKEN_INVALID")
	ErrRoomLimitExceeded = errors.New("ROOM_LIMIT_EXCEEDED")
)

const MaxNameLength = 24

// Tokens 重连令牌签发与校验
type Tokens interface {
	Issue(roomID, playerID string) (string, error)
	Validate(token, roomID, playerID string) (*jwt.Claims, error)
}

// Player 已注册玩家
type Player struct {
	ID       string
	Seq      int // 加入顺序，从 0 开始
	Token    string
	JoinedAt time.Time
}

// Registration 注册结果
type Registration struct {
	RoomID   string
	PlayerID string
	Token    string
	IsHost   bool
	Seq      int
}

type roomEntry struct {
	id        string
	players   []*Player
	byKey     map[string]*Player // 小写名 -> 玩家
	nextSeq   int
	started   bool
	createdAt time.Time
}

// Store 房间与玩家身份存储，首个注册的玩家为房主
type Store struct {
	rooms    map[string]*roomEntry
	tokens   Tokens
	newID    func() string
	maxRooms int
	mu       sync.RWMutex
}

// NewStore 创建身份存储，newID 生成房间码
func NewStore(tokens Tokens, newID func() string, maxRooms int) *Store {
	return &Store{
		rooms:    make(map[string]*roomEntry),
		tokens:   tokens,
		newID:    newID,
		maxRooms: maxRooms,
	}
}

// NormalizeName 去除首尾空白并校验显示名
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}

func nameKey(name string) string {
	return strings.ToLower(name)
}

// CreateRoom 创建房间并注册房主
func (s *Store) CreateRoom(hostName string) (Registration, error) {
	name, err := NormalizeName(hostName)
	if err != nil {
		return Registration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxRooms > 0 && len(s.rooms) >= s.maxRooms {
		return Registration{}, ErrRoomLimitExceeded
	}

	id := s.newID()
	for _, exists := s.rooms[id]; exists; _, exists = s.rooms[id] {
		id = s.newID()
	}

	entry := &roomEntry{
		id:        id,
		byKey:     make(map[string]*Player),
		createdAt: time.Now(),
	}

	reg, err := s.register(entry, name)
	if err != nil {
		return Registration{}, err
	}
	s.rooms[id] = entry

	return reg, nil
}

// Join 注册新玩家：房间存在、名字未被占用、游戏尚未开始
func (s *Store) Join(roomID, playerName string) (Registration, error) {
	name, err := NormalizeName(playerName)
	if err != nil {
		return Registration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return Registration{}, ErrRoomNotFound
	}
	if entry.started {
		return Registration{}, ErrGameStarted
	}
	if _, taken := entry.byKey[nameKey(name)]; taken {
		return Registration{}, ErrNameTaken
	}

	return s.register(entry, name)
}

func (s *Store) register(entry *roomEntry, name string) (Registration, error) {
	token, err := s.tokens.Issue(entry.id, name)
	if err != nil {
		return Registration{}, err
	}

	p := &Player{
		ID:       name,
		Seq:      entry.nextSeq,
		Token:    token,
		JoinedAt: time.Now(),
	}
	entry.nextSeq++
	entry.players = append(entry.players, p)
	entry.byKey[nameKey(name)] = p

	return Registration{
		RoomID:   entry.id,
		PlayerID: p.ID,
		Token:    token,
		IsHost:   p.Seq == 0,
		Seq:      p.Seq,
	}, nil
}

// Authenticate 校验 (房间, 玩家, 令牌)，返回注册信息
func (s *Store) Authenticate(roomID, playerID, token string) (Player, error) {
	s.mu.RLock()
	entry, ok := s.rooms[roomID]
	if !ok {
		s.mu.RUnlock()
		return Player{}, ErrRoomNotFound
	}
	p, ok := entry.byKey[nameKey(playerID)]
	if !ok || p.ID != playerID {
		s.mu.RUnlock()
		return Player{}, ErrNotRegistered
	}
	player := *p
	s.mu.RUnlock()

	if token != player.Token {
		return Player{}, ErrTokenInvalid
	}
	if _, err := s.tokens.Validate(token, roomID, playerID); err != nil {
		return Player{}, ErrTokenInvalid
	}

	return player, nil
}

// MarkStarted 关闭报名
func (s *Store) MarkStarted(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.rooms[roomID]; ok {
		entry.started = true
	}
}

// RemovePlayer 撤销一次注册，加入顺序号不复用
func (s *Store) RemovePlayer(roomID, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.rooms[roomID]
	if !ok {
		return
	}
	key := nameKey(playerID)
	if _, ok := entry.byKey[key]; !ok {
		return
	}
	delete(entry.byKey, key)
	entry.players = slices.DeleteFunc(entry.players, func(p *Player) bool {
		return nameKey(p.ID) == key
	})
}

// RemoveRoom 删除房间及其全部玩家
func (s *Store) RemoveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
}
