package dto

import commonDto "anoa.com/clubportal/pkg/dto"

type AnnouncementInput struct {
	Content string `form:"content" json:"content" binding:"required,max=10000"`
}

type ListQuery struct {
	commonDto.PageQuery
}

// AnnouncementResponse carries the markdown source and its sanitized HTML.
type AnnouncementResponse struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	FromPhotoURL string `json:"fromPhotoUrl"`
	Content      string `json:"content"`
	HTML         string `json:"html"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Date         string `json:"date"`
	Timestamp    int64  `json:"timestamp"`
}

type AnnouncementListResponse struct {
	Data       []AnnouncementResponse   `json:"data"`
	Pagination commonDto.PaginationMeta `json:"pagination"`
}
