package api

import (
	"net/http"
	"time"

	"dailyquest/internal/model"
	"dailyquest/internal/service"
	"dailyquest/pkg/auth"
	"dailyquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CookieConfig struct {
	Domain string `yaml:"domain"`
	Secure bool   `yaml:"secure"`
}

type authRoutes struct {
	as      service.AuthServiceI
	cookies CookieConfig
}

func NewAuthRoutes(handler *gin.RouterGroup, as service.AuthServiceI, a *auth.TelegramAuth, cookies CookieConfig) {
	r := &authRoutes{as: as, cookies: cookies}

	h := handler.Group("/auth")
	{
		h.POST("/telegram", a.TelegramAuthMiddleware(), r.Login)
		h.POST("/refresh", r.Refresh)
		h.POST("/logout", r.Logout)
	}
}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type loginResponse struct {
	tokenResponse
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func newTokenResponse(pair *auth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func (r *authRoutes) setCookies(c *gin.Context, pair *auth.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.AccessCookie, pair.AccessToken, maxAge(pair.AccessExpiresAt), "/", r.cookies.Domain, r.cookies.Secure, true)
	c.SetCookie(auth.RefreshCookie, pair.RefreshToken, maxAge(pair.RefreshExpiresAt), "/", r.cookies.Domain, r.cookies.Secure, true)
}

func (r *authRoutes) clearCookies(c *gin.Context) {
	c.SetCookie(auth.AccessCookie, "", -1, "/", r.cookies.Domain, r.cookies.Secure, true)
	c.SetCookie(auth.RefreshCookie, "", -1, "/", r.cookies.Domain, r.cookies.Secure, true)
}

func maxAge(expiresAt time.Time) int {
	seconds := int(time.Until(expiresAt).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// refreshToken prefers the body over the cookie.
func refreshToken(c *gin.Context) string {
	var req refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
			return req.RefreshToken
		}
	}

	token, _ := c.Cookie(auth.RefreshCookie)
	return token
}

func (r *authRoutes) Login(c *gin.Context) {
	log := logger.Logger()

	telegramUser, ok := auth.TelegramUser(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	pair, user, err := r.as.Login(c.Request.Context(), model.ProviderTelegram, telegramUser.OAuth2ID())
	if err != nil {
		respondError(c, "failed to log in", err)
		return
	}

	r.setCookies(c, pair)
	c.JSON(http.StatusOK, loginResponse{
		tokenResponse: newTokenResponse(pair),
		UserID:        user.ID,
		Nickname:      user.Nickname,
		Role:          string(user.Role),
	})
}

func (r *authRoutes) Refresh(c *gin.Context) {
	token := refreshToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token is required"})
		return
	}

	pair, err := r.as.Refresh(c.Request.Context(), token)
	if err != nil {
		r.clearCookies(c)
		respondError(c, "failed to refresh token", err)
		return
	}

	r.setCookies(c, pair)
	c.JSON(http.StatusOK, newTokenResponse(pair))
}

func (r *authRoutes) Logout(c *gin.Context) {
	if token := refreshToken(c); token != "" {
		if err := r.as.Logout(c.Request.Context(), token); err != nil {
			logger.Logger().Error("failed to revoke refresh token", zap.Error(err))
		}
	}

	r.clearCookies(c)
	c.Status(http.StatusNoContent)
}
