package http

import (
	"net/http"

	"anoa.com/clubportal/internal/modules/ledger/dto"
	ledgerService "anoa.com/clubportal/internal/modules/ledger/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/response"
	"anoa.com/clubportal/pkg/validator"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	service ledgerService.LedgerService
	live    liveService.Synchronizer
}

func NewLedgerHandler(service ledgerService.LedgerService, live liveService.Synchronizer) *LedgerHandler {
	return &LedgerHandler{service: service, live: live}
}

// GetLeaderboard ranks the latest users snapshot.
func (h *LedgerHandler) GetLeaderboard(c *gin.Context) {
	var query dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	response.OK(c, h.service.Leaderboard(h.live.Current().Users, query.Limit))
}

func (h *LedgerHandler) GetPoints(c *gin.Context) {
	points, err := h.service.Points(c.Request.Context(), c.Param("uid"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, points)
}

func (h *LedgerHandler) GrantPoints(c *gin.Context) {
	actorUID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.GrantPointsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	entry, err := h.service.GrantPoints(c.Request.Context(), h.live.Current().AdminIDs, actorUID, c.Param("uid"), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}
