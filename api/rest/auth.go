package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/model"
)

const cacheTimeout = 2 * time.Second

// AuthHandler handles authentication REST endpoints.
type AuthHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	sec    config.SecurityConfig
	cost   int
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, cache: c, sec: sec, cost: bcrypt.DefaultCost, logger: logger}
}

type loginRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=4,max=64"`
}

// Login handles POST /api/auth/login.
// Auto-registers on first login if the username does not exist.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var acc model.Account
	err := h.db.Where("username = ?", req.Username).First(&acc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.cost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		acc = model.Account{Username: req.Username, PasswordHash: string(hash), Status: 1}
		if err := h.db.Create(&acc).Error; err != nil {
			if isUniqueViolation(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
				return
			}
			h.logger.Error("register account", zap.String("username", req.Username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}
		h.logger.Info("account registered", zap.Int64("account_id", acc.ID))
	case err != nil:
		h.logger.Error("load account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if acc.Status == 0 {
			c.JSON(http.StatusForbidden, gin.H{"error": "account banned"})
			return
		}
	}

	token, ok := h.issue(c, acc.ID, acc.Username)
	if !ok {
		return
	}

	now := time.Now()
	if err := h.db.Model(&acc).Updates(map[string]any{
		"last_login_at": now,
		"last_login_ip": c.ClientIP(),
	}).Error; err != nil {
		h.logger.Warn("record login", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "account_id": acc.ID})
}

// issue signs a token and marks it live in the cache.
func (h *AuthHandler) issue(c *gin.Context, accountID int64, username string) (string, bool) {
	token, err := mw.GenerateToken(accountID, username, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return "", false
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), cacheTimeout)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), strconv.FormatInt(accountID, 10), h.sec.JWTTTLH); err != nil {
		h.logger.Error("store login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
		return "", false
	}
	return token, true
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), cacheTimeout)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(mw.GetToken(c)))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh. The old token stops working.
func (h *AuthHandler) Refresh(c *gin.Context) {
	accountID := mw.GetAccountID(c)
	var acc model.Account
	if err := h.db.First(&acc, accountID).Error; err != nil || acc.Status == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), cacheTimeout)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(mw.GetToken(c)))

	token, ok := h.issue(c, acc.ID, acc.Username)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
