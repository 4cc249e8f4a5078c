package http

import (
	"net/http"

	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/internal/modules/problem/dto"
	problemService "anoa.com/clubportal/internal/modules/problem/service"
	"anoa.com/clubportal/pkg/response"
	"anoa.com/clubportal/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ProblemHandler struct {
	service problemService.ProblemService
	live    liveService.Synchronizer
}

func NewProblemHandler(service problemService.ProblemService, live liveService.Synchronizer) *ProblemHandler {
	return &ProblemHandler{service: service, live: live}
}

func (h *ProblemHandler) GetProblems(c *gin.Context) {
	var query dto.ProblemListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	response.OK(c, h.service.List(h.live.Current().Problems, query.Severity))
}

func (h *ProblemHandler) AddProblem(c *gin.Context) {
	var input dto.ProblemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	problem, err := h.service.AddProblem(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": problem})
}

func (h *ProblemHandler) ReplaceProblem(c *gin.Context) {
	var input dto.ProblemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	problem, err := h.service.ReplaceProblem(c.Request.Context(), c.Param("title"), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, problem)
}

func (h *ProblemHandler) DeleteProblem(c *gin.Context) {
	if err := h.service.DeleteProblem(c.Request.Context(), c.Param("title")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Problem deleted successfully"})
}
