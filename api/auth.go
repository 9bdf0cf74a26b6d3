package api

import (
	"genealogy/config"
	"genealogy/logger"
	"genealogy/middleware"
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg      *config.Config
	accounts *service.AccountService
	tree     *service.FamilyTreeService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, accounts *service.AccountService, tree *service.FamilyTreeService) *AuthHandler {
	return &AuthHandler{cfg: cfg, accounts: accounts, tree: tree}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" example:"admin"`
	Password string `json:"password" example:"password123"`
}

// LoginResponse 登录响应，access_exp 为 access token 过期时间（Unix 秒）
type LoginResponse struct {
	Refresh   string            `json:"refresh"`
	Access    string            `json:"access"`
	AccessExp int64             `json:"access_exp"`
	User      *service.Identity `json:"user"`
}

// RefreshRequest 携带 refresh token 的请求
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// RefreshResponse 刷新响应
type RefreshResponse struct {
	Access    string `json:"access"`
	AccessExp int64  `json:"access_exp"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,password"`
}

// RequestResetRequest 申请重置密码
type RequestResetRequest struct {
	Email string `json:"email" binding:"required,email" example:"someone@example.com"`
}

// ResetPasswordRequest 使用验证码重置密码
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6"`
	NewPassword string `json:"new_password" binding:"required,password"`
}

// Login 用户登录
// @Summary 用户登录
// @Description 校验用户名与密码，返回 access/refresh token 及当前用户的族谱身份
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "用户名或密码为空"
// @Failure 401 {object} Response "用户名或密码错误"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		handleError(c, err, "登录失败")
		return
	}

	resp, err := h.issueTokens(account)
	if err != nil {
		handleError(c, err, "生成 token 失败")
		return
	}
	logger.Info().Uint("account_id", account.ID).Str("username", account.Username).Msg("用户登录")
	SuccessWithMessage(c, "登录成功", resp)
}

func (h *AuthHandler) issueTokens(account *models.Account) (*LoginResponse, error) {
	access, accessClaims, err := middleware.GenerateToken(account.ID, account.Username, account.IsSuperuser,
		middleware.TokenTypeAccess, h.cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	refresh, _, err := middleware.GenerateToken(account.ID, account.Username, account.IsSuperuser,
		middleware.TokenTypeRefresh, h.cfg.JWT.RefreshExpireTime)
	if err != nil {
		return nil, err
	}
	identity, err := h.tree.ResolveIdentity(account)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Refresh:   refresh,
		Access:    access,
		AccessExp: accessClaims.ExpiresAt.Unix(),
		User:      identity,
	}, nil
}

// parseRefresh 校验 refresh token 类型与注销状态
func (h *AuthHandler) parseRefresh(c *gin.Context) (*middleware.Claims, bool) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return nil, false
	}
	claims, err := middleware.ParseToken(req.Refresh)
	if err != nil || claims.TokenType != middleware.TokenTypeRefresh {
		Unauthorized(c, "refresh token 无效或已过期")
		return nil, false
	}
	revoked, err := h.accounts.IsRevoked(claims.ID)
	if err != nil {
		handleError(c, err, "校验 token 失败")
		return nil, false
	}
	if revoked {
		Unauthorized(c, "refresh token 已注销")
		return nil, false
	}
	return claims, true
}

// Refresh 刷新 access token
// @Summary 刷新 token
// @Description 使用未注销的 refresh token 换取新的 access token
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "refresh token"
// @Success 200 {object} Response{data=RefreshResponse}
// @Failure 401 {object} Response "refresh token 无效、过期或已注销"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims, ok := h.parseRefresh(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetAccount(claims.AccountID)
	if err != nil || !account.IsActive {
		Unauthorized(c, "账号不存在或已停用")
		return
	}
	access, accessClaims, err := middleware.GenerateToken(account.ID, account.Username, account.IsSuperuser,
		middleware.TokenTypeAccess, h.cfg.JWT.ExpireTime)
	if err != nil {
		handleError(c, err, "生成 token 失败")
		return
	}
	Success(c, RefreshResponse{Access: access, AccessExp: accessClaims.ExpiresAt.Unix()})
}

// Logout 注销 refresh token
// @Summary 退出登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "refresh token"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := h.parseRefresh(c)
	if !ok {
		return
	}
	if err := h.accounts.RevokeToken(claims.ID, claims.ExpiresAt.Time); err != nil {
		handleError(c, err, "退出登录失败")
		return
	}
	SuccessWithMessage(c, "已退出登录", nil)
}

// GetProfile 获取当前登录身份
// @Summary 获取当前用户身份
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.Identity}
// @Failure 401 {object} Response
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	account, err := h.accounts.GetAccount(middleware.GetCurrentAccountID(c))
	if err != nil {
		Unauthorized(c, "账号不存在")
		return
	}
	identity, err := h.tree.ResolveIdentity(account)
	if err != nil {
		handleError(c, err, "获取身份失败")
		return
	}
	Success(c, identity)
}

// ChangePassword 修改本人密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "原密码与新密码"
// @Success 200 {object} Response
// @Failure 400 {object} Response "新密码不符合规则"
// @Failure 401 {object} Response "原密码错误"
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.accounts.ChangePassword(middleware.GetCurrentAccountID(c), req.OldPassword, req.NewPassword); err != nil {
		handleError(c, err, "修改密码失败")
		return
	}
	SuccessWithMessage(c, "密码修改成功", nil)
}

// RequestPasswordReset 发送重置验证码
// @Summary 申请重置密码
// @Description 向账号邮箱发送 6 位验证码，10 分钟内有效；邮箱未注册时同样返回成功
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RequestResetRequest true "邮箱"
// @Success 200 {object} Response
// @Failure 400 {object} Response "邮件服务未启用"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/auth/password/request-reset [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	if !h.cfg.Email.Enabled {
		BadRequest(c, "邮件服务未启用")
		return
	}
	var req RequestResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.accounts.RequestPasswordReset(req.Email); err != nil {
		handleError(c, err, "发送验证码失败")
		return
	}
	SuccessWithMessage(c, "如果该邮箱已注册，验证码已发送", nil)
}

// ResetPassword 使用验证码重置密码
// @Summary 重置密码
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "邮箱、验证码与新密码"
// @Success 200 {object} Response
// @Failure 400 {object} Response "验证码错误或已过期"
// @Router /api/v1/auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.accounts.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		handleError(c, err, "重置密码失败")
		return
	}
	SuccessWithMessage(c, "密码重置成功，请使用新密码登录", nil)
}
