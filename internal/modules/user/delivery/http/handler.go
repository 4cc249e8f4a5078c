package http

import (
	"fmt"
	"net/http"
	"net/url"

	liveService "anoa.com/clubportal/internal/modules/live/service"
	userService "anoa.com/clubportal/internal/modules/user/service"
	"anoa.com/clubportal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const stateCookie = "oauth_state"

type AuthHandler struct {
	authService userService.AuthService
	live        liveService.Synchronizer
	frontendURL string
}

func NewAuthHandler(authService userService.AuthService, live liveService.Synchronizer, frontendURL string) *AuthHandler {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &AuthHandler{
		authService: authService,
		live:        live,
		frontendURL: frontendURL,
	}
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GoogleLogin(state))
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code not found"})
		return
	}

	expected, err := c.Cookie(stateCookie)
	if err != nil || expected == "" || expected != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", c.Request.TLS != nil, true)

	res, err := h.authService.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?error="+url.QueryEscape(err.Error()))
		return
	}

	redirectURL := fmt.Sprintf("%s/auth/google/callback?token=%s", h.frontendURL, url.QueryEscape(res.AccessToken))
	c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

func (h *AuthHandler) Me(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.authService.Me(c.Request.Context(), uid, h.live.Current().AdminIDs)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.OK(c, res)
}

func (h *AuthHandler) DeleteMe(c *gin.Context) {
	uid, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.authService.DeleteUserData(c.Request.Context(), uid); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account data deleted successfully"})
}
