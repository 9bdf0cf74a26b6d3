package api

import (
	"genealogy/models"

	"github.com/gin-gonic/gin"
)

// CategoryRequest 支出类别
type CategoryRequest struct {
	Name string  `json:"name" binding:"required,min=1,max=255" example:"祭祀"`
	Note *string `json:"note"`
}

// ListCategories 支出类别列表
// @Summary 获取支出类别列表
// @Description 按名称或备注模糊搜索
// @Tags 财务-支出类别
// @Produce json
// @Security BearerAuth
// @Param search query string false "关键字"
// @Param ordering query string false "排序字段"
// @Param query_all query bool false "返回全部"
// @Success 200 {object} Response{data=PageResponse{results=[]models.ExpenseCategory}}
// @Router /api/v1/expense-categories [get]
func (h *FinanceHandler) ListCategories(c *gin.Context) {
	p := bindPage(c)
	list, total, err := h.finance.ListCategories(firstQuery(c, "search", "name"), firstQuery(c, "ordering"), p)
	if err != nil {
		handleError(c, err, "查询支出类别失败")
		return
	}
	Paged(c, list, total, p)
}

// GetCategory 支出类别详情
// @Summary 支出类别详情
// @Tags 财务-支出类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response{data=models.ExpenseCategory}
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/expense-categories/{id} [get]
func (h *FinanceHandler) GetCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	category, err := h.finance.GetCategory(id)
	if err != nil {
		handleError(c, err, "查询支出类别失败")
		return
	}
	Success(c, category)
}

// SaveCategory 新增或修改支出类别
// @Summary 创建支出类别
// @Tags 财务-支出类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID（仅 PUT）"
// @Param request body CategoryRequest true "类别信息"
// @Success 200 {object} Response{data=models.ExpenseCategory} "更新成功"
// @Success 201 {object} Response{data=models.ExpenseCategory} "新增成功"
// @Failure 400 {object} Response "参数错误"
// @Router /api/v1/expense-categories [post]
// @Router /api/v1/expense-categories/{id} [put]
func (h *FinanceHandler) SaveCategory(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseID(c); !ok {
			return
		}
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	category := models.ExpenseCategory{ID: id, Name: req.Name, Note: req.Note}
	if err := h.finance.SaveCategory(&category); err != nil {
		handleError(c, err, "保存支出类别失败")
		return
	}
	respondSaved(c, id, category)
}

// DeleteCategory 删除支出类别，已有支出保留但不再归类
// @Summary 删除支出类别
// @Tags 财务-支出类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/expense-categories/{id} [delete]
func (h *FinanceHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.finance.DeleteCategory(id); err != nil {
		handleError(c, err, "删除支出类别失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
