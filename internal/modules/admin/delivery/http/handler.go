package handler

import (
	"context"

	"anoa.com/clubportal/internal/modules/admin/dto"
	adminService "anoa.com/clubportal/internal/modules/admin/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	"anoa.com/clubportal/pkg/response"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService adminService.AdminService
	live         liveService.Synchronizer
}

func NewAdminHandler(adminService adminService.AdminService, live liveService.Synchronizer) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		live:         live,
	}
}

// RequestPermissions files the caller's own request.
func (h *AdminHandler) RequestPermissions(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	outcome, err := h.adminService.RequestAdminPermissions(c.Request.Context(), uid)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, dto.OutcomeResponse{Outcome: outcome, UID: uid})
}

func (h *AdminHandler) GetRequests(c *gin.Context) {
	response.OK(c, h.adminService.PendingRequests(h.live.Current()))
}

func (h *AdminHandler) GetAdmins(c *gin.Context) {
	response.OK(c, h.adminService.Admins(h.live.Current()))
}

func (h *AdminHandler) ApproveRequest(c *gin.Context) {
	h.run(c, h.adminService.ApproveAdminRequest)
}

func (h *AdminHandler) RejectRequest(c *gin.Context) {
	h.run(c, h.adminService.RejectAdminRequest)
}

func (h *AdminHandler) RemoveAdmin(c *gin.Context) {
	h.run(c, h.adminService.RemoveAdmin)
}

func (h *AdminHandler) run(c *gin.Context, action func(ctx context.Context, uid string) (dto.Outcome, error)) {
	uid := c.Param("uid")
	outcome, err := action(c.Request.Context(), uid)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, dto.OutcomeResponse{Outcome: outcome, UID: uid})
}
