package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/ranking"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	board  *ranking.Board
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(board *ranking.Board, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{board: board, logger: logger}
}

// TopLevel returns the highest characters by level, then experience.
// GET /api/ranking/level?limit=20
func (h *RankingHandler) TopLevel(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= h.board.Size() {
		limit = l
	}
	entries, err := h.board.Top(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("load ranking", zap.Error(err))
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []ranking.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}
