package entity

type Announcement struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	FromPhotoURL string `json:"fromPhotoUrl"`
	Content      string `json:"content"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Date         string `json:"date"`
	Timestamp    int64  `json:"timestamp"`
}
