package api

import (
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// ExpenseRequest 支出
type ExpenseRequest struct {
	Amount     int64        `json:"amount" binding:"required,gt=0" example:"500"`
	Date       *models.Date `json:"date" binding:"required" swaggertype:"string" example:"2024-04-05"`
	CategoryID *uint        `json:"category_id"`
}

// ListExpenses 支出列表
// @Summary 支出列表
// @Tags 财务-支出
// @Produce json
// @Security BearerAuth
// @Param date_after query string false "日期起 (2006-01-02)"
// @Param date_before query string false "日期止 (2006-01-02)"
// @Param category_id query int false "类别ID"
// @Param search query string false "类别名称，整数时也匹配金额"
// @Param ordering query string false "排序字段"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Expense}}
// @Router /api/v1/expenses [get]
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	dates, err := queryDateRange(c, "date")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	f := service.ExpenseFilter{
		Date:     dates,
		Search:   firstQuery(c, "search"),
		Ordering: firstQuery(c, "ordering"),
		Page:     bindPage(c),
	}
	if f.CategoryID, err = queryUint(c, "category_id", "category"); err != nil {
		BadRequest(c, err.Error())
		return
	}
	list, total, err := h.finance.ListExpenses(f)
	if err != nil {
		handleError(c, err, "查询支出失败")
		return
	}
	Paged(c, list, total, f.Page)
}

// GetExpense 支出详情
// @Summary 支出详情
// @Tags 财务-支出
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response{data=models.Expense}
// @Failure 404 {object} Response
// @Router /api/v1/expenses/{id} [get]
func (h *FinanceHandler) GetExpense(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	expense, err := h.finance.GetExpense(id)
	if err != nil {
		handleError(c, err, "查询支出失败")
		return
	}
	Success(c, expense)
}

// SaveExpense 新增或整体修改支出
// @Summary 登记支出
// @Tags 财务-支出
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID（仅 PUT）"
// @Param request body ExpenseRequest true "支出"
// @Success 200 {object} Response{data=models.Expense} "更新成功"
// @Success 201 {object} Response{data=models.Expense} "新增成功"
// @Failure 400 {object} Response
// @Router /api/v1/expenses [post]
// @Router /api/v1/expenses/{id} [put]
func (h *FinanceHandler) SaveExpense(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseID(c); !ok {
			return
		}
	}
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	expense := models.Expense{ID: id, Amount: req.Amount, Date: *req.Date, CategoryID: req.CategoryID}
	if err := h.finance.SaveExpense(&expense); err != nil {
		handleError(c, err, "保存支出失败")
		return
	}
	respondSaved(c, id, expense)
}

// DeleteExpense 删除支出
// @Summary 删除支出
// @Tags 财务-支出
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/expenses/{id} [delete]
func (h *FinanceHandler) DeleteExpense(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.finance.DeleteExpense(id); err != nil {
		handleError(c, err, "删除支出失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
