package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"gomoku-platform/backend/internal/auth"
	"gomoku-platform/backend/internal/db"
	"gomoku-platform/backend/internal/models"
)

// HandleRegister handles user registration
func HandleRegister(c *gin.Context, database *db.DB, authService *auth.Service) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var count int64
	database.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count)
	if count > 0 {
		fail(c, http.StatusConflict, "USER_EXISTS", "username or email already taken")
		return
	}

	hash, err := authService.HashPassword(req.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not process registration")
		return
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Status:       "ACTIVE",
	}
	if err := database.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			fail(c, http.StatusConflict, "USER_EXISTS", "username or email already taken")
			return
		}
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not process registration")
		return
	}

	respondWithTokens(c, http.StatusCreated, authService, user)
}

// HandleLogin handles user login
func HandleLogin(c *gin.Context, database *db.DB, authService *auth.Service) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	var user models.User
	if err := database.Where("username = ? OR email = ?", req.UsernameOrEmail, req.UsernameOrEmail).First(&user).Error; err != nil {
		fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		return
	}
	if !authService.CheckPassword(req.Password, user.PasswordHash) {
		fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		return
	}
	if user.Status == "SUSPENDED" {
		fail(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", "account is suspended")
		return
	}

	respondWithTokens(c, http.StatusOK, authService, user)
}

// HandleRefresh exchanges a refresh token for a fresh pair
func HandleRefresh(c *gin.Context, database *db.DB, authService *auth.Service) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	userID, err := authService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid refresh token")
		return
	}

	var user models.User
	if err := database.Where("id = ?", userID).First(&user).Error; err != nil {
		fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "unknown user")
		return
	}
	if user.Status == "SUSPENDED" {
		fail(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", "account is suspended")
		return
	}

	respondWithTokens(c, http.StatusOK, authService, user)
}

func respondWithTokens(c *gin.Context, status int, authService *auth.Service, user models.User) {
	access, refresh, err := authService.GenerateTokenPair(user.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not issue tokens")
		return
	}

	c.JSON(status, models.AuthResponse{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(authService.AccessExpiry().Seconds()),
	})
}

// AuthMiddleware validates JWT tokens and sets user_id in context
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			c.Abort()
			return
		}

		userID, err := authService.ValidateToken(authHeader[7:])
		if err != nil {
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
