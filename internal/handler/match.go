package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.trivia/internal/repository"
	apperrors "sudooom.trivia/pkg/errors"
	"sudooom.trivia/pkg/response"
)

const (
	defaultMatchLimit = 20
	maxMatchLimit     = 100
)

// MatchHandler 对局历史接口
type MatchHandler struct {
	history MatchHistory // PostgreSQL 未启用时为 nil
}

// NewMatchHandler 创建对局历史处理器
func NewMatchHandler(history MatchHistory) *MatchHandler {
	return &MatchHandler{history: history}
}

// Recent 最近对局
// @Summary      最近对局
// @Description  按结束时间倒序
// @Tags         对局
// @Produce      json
// @Param        limit  query  int  false  "数量，默认 20，最大 100"
// @Success      200  {object}  response.Response{data=[]repository.MatchRecord}
// @Router       /matches [get]
func (h *MatchHandler) Recent(c *gin.Context) {
	if h.history == nil {
		response.Success(c, []repository.MatchRecord{})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultMatchLimit)))
	if err != nil || limit <= 0 {
		limit = defaultMatchLimit
	}
	limit = min(limit, maxMatchLimit)

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		response.ErrorFromAppError(c, apperrors.ErrServerError.Wrap(err))
		return
	}
	if records == nil {
		records = []repository.MatchRecord{}
	}

	response.Success(c, records)
}
