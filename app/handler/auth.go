package handler

import (
	"media-forge/app/auth"
	"media-forge/app/config"
	"media-forge/app/database"
	"media-forge/app/model"
	"media-forge/app/utils"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	config     *config.Config
	jwtService *auth.JWTService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		config:     cfg,
		jwtService: auth.NewJWTService(cfg),
	}
}

// LoginRequest 登录请求结构
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应结构
type LoginResponse struct {
	Token    string      `json:"token"`
	User     *model.User `json:"user"`
	ExpireAt int64       `json:"expire_at"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	// 查找用户
	var user model.User
	db := database.GetDB()
	result := db.Where("username = ?", req.Username).First(&user)
	if result.Error != nil {
		respondError(c, http.StatusUnauthorized, 401, "用户名或密码错误")
		return
	}

	// 验证密码
	if !utils.VerifyPassword(req.Password, user.Password) {
		respondError(c, http.StatusUnauthorized, 401, "用户名或密码错误")
		return
	}

	// 检查用户是否激活
	if !user.IsActive {
		respondError(c, http.StatusForbidden, 403, "用户账号已被禁用")
		return
	}

	// 生成JWT token
	token, err := h.jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(c, http.StatusInternalServerError, 500, "生成令牌失败")
		return
	}

	// 更新最后登录时间
	now := time.Now()
	user.LastLogin = &now
	db.Save(&user)

	// 计算过期时间
	expireAt := time.Now().Add(time.Duration(h.config.JWT.ExpireTime) * time.Hour).Unix()

	respondSuccess(c, LoginResponse{
		Token:    token,
		User:     &user,
		ExpireAt: expireAt,
	}, "登录成功")
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || len(authHeader) < 8 {
		respondError(c, http.StatusUnauthorized, 401, "Authorization header is required")
		return
	}

	// 去掉 "Bearer " 前缀
	token := authHeader[7:]

	newToken, err := h.jwtService.RefreshToken(token)
	if err != nil {
		respondError(c, http.StatusUnauthorized, 401, "刷新令牌失败: "+err.Error())
		return
	}

	expireAt := time.Now().Add(time.Duration(h.config.JWT.ExpireTime) * time.Hour).Unix()

	respondSuccess(c, gin.H{
		"token":     newToken,
		"expire_at": expireAt,
	}, "刷新成功")
}

// Me 获取当前用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, 401, "未认证")
		return
	}

	var user model.User
	db := database.GetDB()
	if err := db.First(&user, userID).Error; err != nil {
		respondError(c, http.StatusNotFound, 404, "用户不存在")
		return
	}

	respondSuccess(c, user, "获取成功")
}
