package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.trivia/pkg/errors"
	"sudooom.trivia/pkg/response"
)

// RoomHandler 房间注册接口
type RoomHandler struct {
	rooms RoomService
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Create 创建房间
// @Summary      创建房间
// @Description  创建新房间，调用者成为房主
// @Tags         房间
// @Accept       json
// @Produce      json
// @Param        request body JoinRequest true "玩家名"
// @Success      200  {object}  response.Response{data=JoinResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	reg, err := h.rooms.Create(req.PlayerName)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	response.Success(c, toJoinResponse(reg))
}

// Join 加入房间
// @Summary      加入房间
// @Description  以显示名注册到已有房间，游戏开始后不可加入
// @Tags         房间
// @Accept       json
// @Produce      json
// @Param        roomId  path  string       true  "房间码"
// @Param        request body  JoinRequest  true  "玩家名"
// @Success      200  {object}  response.Response{data=JoinResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /rooms/{roomId}/players [post]
func (h *RoomHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, apperrors.CodeInvalidParams, err.Error())
		return
	}

	reg, err := h.rooms.Join(roomIDParam(c), req.PlayerName)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	response.Success(c, toJoinResponse(reg))
}

// State 房间快照
// @Summary      房间状态
// @Description  获取房间当前快照，进行中的题目不含答案
// @Tags         房间
// @Produce      json
// @Param        roomId  path  string  true  "房间码"
// @Success      200  {object}  response.Response{data=model.RoomState}
// @Failure      404  {object}  response.Response
// @Router       /rooms/{roomId} [get]
func (h *RoomHandler) State(c *gin.Context) {
	state, err := h.rooms.State(c.Request.Context(), roomIDParam(c))
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	response.Success(c, state)
}

// 房间码不区分大小写
func roomIDParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("roomId")))
}
