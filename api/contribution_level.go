package api

import (
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// FinanceHandler 会费、赞助、收入、支出与报表
type FinanceHandler struct {
	finance *service.FinanceService
	export  *service.ExportService
}

// NewFinanceHandler 创建财务处理器
func NewFinanceHandler(finance *service.FinanceService, export *service.ExportService) *FinanceHandler {
	return &FinanceHandler{finance: finance, export: export}
}

// LevelRequest 年度会费标准
type LevelRequest struct {
	Year   int     `json:"year" binding:"required,min=1" example:"2024"`
	Amount *int64  `json:"amount" binding:"required,min=0" example:"200"`
	Note   *string `json:"note"`
}

// ListLevels 会费标准列表
// @Summary 会费标准列表
// @Description search 为整数时匹配年度或金额，否则匹配备注
// @Tags 财务-会费标准
// @Produce json
// @Security BearerAuth
// @Param search query string false "关键字"
// @Param ordering query string false "排序字段"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.ContributionLevel}}
// @Router /api/v1/contribution-levels [get]
func (h *FinanceHandler) ListLevels(c *gin.Context) {
	p := bindPage(c)
	list, total, err := h.finance.ListLevels(firstQuery(c, "search"), firstQuery(c, "ordering"), p)
	if err != nil {
		handleError(c, err, "查询会费标准失败")
		return
	}
	Paged(c, list, total, p)
}

// GetLevel 会费标准详情
// @Summary 会费标准详情
// @Tags 财务-会费标准
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response{data=models.ContributionLevel}
// @Failure 404 {object} Response
// @Router /api/v1/contribution-levels/{id} [get]
func (h *FinanceHandler) GetLevel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	level, err := h.finance.GetLevel(id)
	if err != nil {
		handleError(c, err, "查询会费标准失败")
		return
	}
	Success(c, level)
}

// SaveLevel 新增（POST）或整体修改（PUT）会费标准
// @Summary 新增会费标准
// @Description 每个年度只能有一条会费标准
// @Tags 财务-会费标准
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID（仅 PUT）"
// @Param request body LevelRequest true "会费标准"
// @Success 200 {object} Response{data=models.ContributionLevel} "更新成功"
// @Success 201 {object} Response{data=models.ContributionLevel} "新增成功"
// @Failure 400 {object} Response "年度已存在"
// @Router /api/v1/contribution-levels [post]
// @Router /api/v1/contribution-levels/{id} [put]
func (h *FinanceHandler) SaveLevel(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseID(c); !ok {
			return
		}
	}
	var req LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	level := models.ContributionLevel{ID: id, Year: req.Year, Amount: *req.Amount, Note: req.Note}
	if err := h.finance.SaveLevel(&level); err != nil {
		handleError(c, err, "保存会费标准失败")
		return
	}
	respondSaved(c, id, level)
}

// DeleteLevel 删除会费标准
// @Summary 删除会费标准
// @Description 已登记的收入保留，仅解除关联
// @Tags 财务-会费标准
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/contribution-levels/{id} [delete]
func (h *FinanceHandler) DeleteLevel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.finance.DeleteLevel(id); err != nil {
		handleError(c, err, "删除会费标准失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// respondSaved 新建返回 201，更新返回 200
func respondSaved(c *gin.Context, id uint, data interface{}) {
	if id == 0 {
		Created(c, data)
		return
	}
	SuccessWithMessage(c, "更新成功", data)
}
