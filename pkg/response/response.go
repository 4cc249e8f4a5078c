package response

import (
	"net/http"

	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// GetUserID retrieves the authenticated uid from the context
func GetUserID(c *gin.Context) (string, error) {
	value, exists := c.Get("user_id")
	if !exists {
		return "", apperror.ErrUnauthorized
	}

	uid, ok := value.(string)
	if !ok || uid == "" {
		return "", apperror.ErrUnauthorized
	}

	return uid, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		logger.Error("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": err.Error()})
}

// OK wraps data the way every success response is shaped.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}
