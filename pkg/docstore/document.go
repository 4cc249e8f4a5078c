package docstore

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"anoa.com/clubportal/pkg/apperror"
	"gorm.io/datatypes"
)

var (
	ErrNotFound   = fmt.Errorf("document %w", apperror.ErrNotFound)
	ErrConflict   = fmt.Errorf("document version %w", apperror.ErrConflict)
	ErrContention = fmt.Errorf("document kept changing under concurrent writers: %w", apperror.ErrConflict)
	ErrBadPath    = fmt.Errorf("document path %w", apperror.ErrInvalidInput)
)

// Document is a single JSON document. Collection is Path without its last
// segment, so "admins/admins/admins/u1" lives in "admins/admins/admins".
type Document struct {
	Path       string         `gorm:"primaryKey;size:512" json:"path"`
	Collection string         `gorm:"size:512;index;not null" json:"collection"`
	DocID      string         `gorm:"size:255;not null" json:"id"`
	Data       datatypes.JSON `gorm:"not null" json:"data"`
	Version    int64          `gorm:"not null;default:1" json:"version"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// Decode unmarshals the document body into out.
func (d Document) Decode(out any) error {
	if err := json.Unmarshal(d.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

// ID returns the unescaped document id.
func (d Document) ID() string {
	id, err := url.PathUnescape(d.DocID)
	if err != nil {
		return d.DocID
	}
	return id
}

// Join builds a path from raw segments. Segments are escaped so keys such as
// problem titles may contain slashes.
func Join(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

// Split returns the collection and (escaped) id of a document path.
func Split(path string) (collection, id string, err error) {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return "", "", fmt.Errorf("%w: %q", ErrBadPath, path)
		}
	}
	return path[:idx], path[idx+1:], nil
}
