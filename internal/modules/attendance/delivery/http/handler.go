package http

import (
	"context"
	"net/http"

	"anoa.com/clubportal/internal/modules/attendance/dto"
	attendanceService "anoa.com/clubportal/internal/modules/attendance/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/response"
	"anoa.com/clubportal/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	service attendanceService.AttendanceService
	live    liveService.Synchronizer
}

func NewAttendanceHandler(service attendanceService.AttendanceService, live liveService.Synchronizer) *AttendanceHandler {
	return &AttendanceHandler{service: service, live: live}
}

func (h *AttendanceHandler) RequestAttendance(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	outcome, err := h.service.RequestAttendance(c.Request.Context(), uid)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, dto.OutcomeResponse{Outcome: outcome, UID: uid})
}

func (h *AttendanceHandler) GetPending(c *gin.Context) {
	response.OK(c, h.service.PendingRequests(h.live.Current()))
}

func (h *AttendanceHandler) Approve(c *gin.Context) {
	h.settle(c, h.service.ApproveAttendance)
}

func (h *AttendanceHandler) Reject(c *gin.Context) {
	h.settle(c, h.service.RejectAttendance)
}

func (h *AttendanceHandler) settle(c *gin.Context, action func(ctx context.Context, dateKey, uid string) (dto.Outcome, error)) {
	var params dto.DateParam
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	outcome, err := action(c.Request.Context(), params.Date, params.UID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, dto.OutcomeResponse{Outcome: outcome, Date: params.Date, UID: params.UID})
}

// MarkPresent is the admin "Present" button for today's meeting.
func (h *AttendanceHandler) MarkPresent(c *gin.Context) {
	uid := c.Param("uid")
	outcome, err := h.service.MarkPresent(c.Request.Context(), uid)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, dto.OutcomeResponse{Outcome: outcome, UID: uid})
}
