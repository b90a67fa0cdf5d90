package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.trivia/internal/leaderboard"
	"sudooom.trivia/pkg/response"
)

// LeaderboardHandler 排行榜接口
type LeaderboardHandler struct {
	board Leaderboard // Redis 未启用时为 nil
}

// NewLeaderboardHandler 创建排行榜处理器
func NewLeaderboardHandler(board Leaderboard) *LeaderboardHandler {
	return &LeaderboardHandler{board: board}
}

// Top 排行榜
// @Summary      排行榜
// @Description  按胜场排序的全局排行
// @Tags         排行榜
// @Produce      json
// @Param        limit  query  int  false  "数量，默认 10，最大 100"
// @Success      200  {object}  response.Response{data=[]leaderboard.Entry}
// @Router       /leaderboard [get]
func (h *LeaderboardHandler) Top(c *gin.Context) {
	if h.board == nil {
		response.Success(c, []leaderboard.Entry{})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = leaderboard.DefaultLimit
	}

	entries, err := h.board.Top(c.Request.Context(), limit)
	if err != nil {
		response.ErrorFromAppError(c, err)
		return
	}

	response.Success(c, entries)
}
