package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenMismatch = errors.New("token does not match room or player")
)

const issuer = "trivia"

// Claims 重连令牌声明，绑定 (房间, 玩家)
type Claims struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

// Service 重连令牌服务
type Service struct {
	secretKey []byte
	expire    time.Duration
}

// NewService 创建令牌服务
func NewService(secretKey string, expire time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		expire:    expire,
	}
}

// Issue 为玩家签发令牌
func (s *Service) Issue(roomID, playerID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RoomID:   roomID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate 校验令牌，并确认与 (房间, 玩家) 一致
func (s *Service) Validate(tokenString, roomID, playerID string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.RoomID != roomID || claims.PlayerID != playerID {
		return nil, ErrTokenMismatch
	}

	return claims, nil
}
