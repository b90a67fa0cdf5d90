package room

import "errors"

// 房间错误定义

var (
	ErrRoomNotFound = errors.New("ROOM_NOT_FOUND")
	ErrRoomClosed   = errors.New("ROOM_CLOSED")
	ErrRoomBusy     = errors.New("ROOM_BUSY")
	ErrBadMessage   = errors.New("BAD_MESSAGE")
	ErrGameStarted  = errors.New("GAME_ALREADY_STARTED")
)
