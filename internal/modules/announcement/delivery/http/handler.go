package http

import (
	"net/http"

	"anoa.com/clubportal/internal/modules/announcement/dto"
	announcementService "anoa.com/clubportal/internal/modules/announcement/service"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	commonDto "anoa.com/clubportal/pkg/dto"
	"anoa.com/clubportal/pkg/response"
	"anoa.com/clubportal/pkg/validator"
	"github.com/gin-gonic/gin"
)

type AnnouncementHandler struct {
	service announcementService.AnnouncementService
	live    liveService.Synchronizer
}

func NewAnnouncementHandler(service announcementService.AnnouncementService, live liveService.Synchronizer) *AnnouncementHandler {
	return &AnnouncementHandler{service: service, live: live}
}

func (h *AnnouncementHandler) GetAnnouncements(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	c.JSON(http.StatusOK, h.service.List(h.live.Current().Announcements, query))
}

// AddAnnouncement accepts JSON or a multipart form with an optional "image".
func (h *AnnouncementHandler) AddAnnouncement(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input dto.AnnouncementInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var image *commonDto.UploadFile
	if fileHeader, err := c.FormFile("image"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
			return
		}
		defer file.Close()

		image = &commonDto.UploadFile{
			Reader:   file,
			FileName: fileHeader.Filename,
		}
	}

	res, err := h.service.AddAnnouncement(c.Request.Context(), uid, input, image)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": res})
}

func (h *AnnouncementHandler) UpdateAnnouncement(c *gin.Context) {
	var input dto.AnnouncementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.UpdateAnnouncement(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, res)
}

func (h *AnnouncementHandler) DeleteAnnouncement(c *gin.Context) {
	if err := h.service.DeleteAnnouncement(c.Request.Context(), c.Param("id")); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Announcement deleted successfully"})
}
