package http

import (
	"net/http"

	"anoa.com/clubportal/internal/modules/challenge/dto"
	challengeService "anoa.com/clubportal/internal/modules/challenge/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/response"
	"anoa.com/clubportal/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ChallengeHandler struct {
	service challengeService.ChallengeService
	live    liveService.Synchronizer
}

func NewChallengeHandler(service challengeService.ChallengeService, live liveService.Synchronizer) *ChallengeHandler {
	return &ChallengeHandler{service: service, live: live}
}

// GetChallenges serves the catalogue from the latest snapshot.
func (h *ChallengeHandler) GetChallenges(c *gin.Context) {
	response.OK(c, h.live.Current().Challenges)
}

func (h *ChallengeHandler) GetWorkspace(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	ws, err := h.service.OpenWorkspace(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, ws)
}

func (h *ChallengeHandler) SetCode(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.SetCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	ws, err := h.service.SetCode(c.Request.Context(), uid, c.Param("id"), input.Language, input.Code)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, ws)
}

func (h *ChallengeHandler) SwitchLanguage(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.SwitchLanguageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	ws, err := h.service.SwitchLanguage(c.Request.Context(), uid, c.Param("id"), input.Language)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, ws)
}

func (h *ChallengeHandler) Save(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Save(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, res)
}

func (h *ChallengeHandler) Submit(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.service.Submit(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, res)
}

func (h *ChallengeHandler) CreateChallenge(c *gin.Context) {
	var input dto.ChallengeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	challenge, err := h.service.CreateChallenge(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": challenge})
}

func (h *ChallengeHandler) ReplaceChallenge(c *gin.Context) {
	var input dto.ChallengeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	challenge, err := h.service.ReplaceChallenge(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, challenge)
}

func (h *ChallengeHandler) DeleteChallenge(c *gin.Context) {
	if err := h.service.DeleteChallenge(c.Request.Context(), c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Challenge deleted successfully"})
}
