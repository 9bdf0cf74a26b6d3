package api

import (
	"genealogy/middleware"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// AccountHandler 账号管理（超级管理员）
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler 创建账号处理器
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// CreateAccountRequest 创建账号
type CreateAccountRequest struct {
	Username    string `json:"username" binding:"required,min=1,max=150" example:"zhangsan"`
	Password    string `json:"password" binding:"required,password" example:"password123"`
	Email       string `json:"email" binding:"omitempty,email,max=100"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UpdateAccountRequest 修改账号，未传字段保持不变
type UpdateAccountRequest struct {
	Email       *string `json:"email" binding:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
	Password    *string `json:"password" binding:"omitempty,password"`
}

// List 账号列表
// @Summary 账号列表
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Param search query string false "用户名或邮箱关键字"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Account}}
// @Failure 403 {object} Response
// @Router /api/v1/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	p := bindPage(c)
	list, total, err := h.accounts.ListAccounts(firstQuery(c, "search"), p)
	if err != nil {
		handleError(c, err, "查询账号失败")
		return
	}
	Paged(c, list, total, p)
}

// Get 账号详情
// @Summary 账号详情
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号ID"
// @Success 200 {object} Response{data=models.Account}
// @Failure 404 {object} Response
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetAccount(id)
	if err != nil {
		handleError(c, err, "查询账号失败")
		return
	}
	Success(c, account)
}

// Create 创建账号
// @Summary 创建账号
// @Description 密码至少 8 位，不能全为数字，至少包含一个字母
// @Tags 账号
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "账号信息"
// @Success 201 {object} Response{data=models.Account}
// @Failure 400 {object} Response "用户名已存在或密码不符合规则"
// @Router /api/v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	account, err := h.accounts.CreateAccount(req.Username, req.Password, req.Email, req.IsSuperuser)
	if err != nil {
		handleError(c, err, "创建账号失败")
		return
	}
	Created(c, account)
}

// Update 修改账号
// @Summary 修改账号
// @Tags 账号
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号ID"
// @Param request body UpdateAccountRequest true "账号信息"
// @Success 200 {object} Response{data=models.Account}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if id == middleware.GetCurrentAccountID(c) && (isFalse(req.IsActive) || isFalse(req.IsSuperuser)) {
		BadRequest(c, "不能停用或降级当前登录的账号")
		return
	}
	account, err := h.accounts.UpdateAccount(id, service.AccountUpdate{
		Email:       req.Email,
		IsActive:    req.IsActive,
		IsSuperuser: req.IsSuperuser,
		Password:    req.Password,
	})
	if err != nil {
		handleError(c, err, "修改账号失败")
		return
	}
	SuccessWithMessage(c, "更新成功", account)
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}

// Delete 删除账号
// @Summary 删除账号
// @Description 关联的成员保留，仅解除关联
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Param id path int true "账号ID"
// @Success 200 {object} Response
// @Failure 400 {object} Response "不能删除当前登录的账号"
// @Failure 404 {object} Response
// @Router /api/v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if id == middleware.GetCurrentAccountID(c) {
		BadRequest(c, "不能删除当前登录的账号")
		return
	}
	if err := h.accounts.DeleteAccount(id); err != nil {
		handleError(c, err, "删除账号失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
