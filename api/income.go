package api

import (
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// IncomeRequest 收入登记：会费收入需指定会费标准与成员，赞助收入指定赞助人
type IncomeRequest struct {
	Date                *models.Date `json:"date" binding:"required" swaggertype:"string" example:"2024-03-01"`
	ContributionLevelID *uint        `json:"contribution_level_id"`
	MemberID            *uint        `json:"member_id"`
	SponsorID           *uint        `json:"sponsor_id"`
}

// ListIncomes 收入列表
// @Summary 收入列表
// @Tags 财务-收入
// @Produce json
// @Security BearerAuth
// @Param date_after query string false "日期起 (2006-01-02)"
// @Param date_before query string false "日期止 (2006-01-02)"
// @Param contributor query bool false "true 仅会费收入，false 仅非会费收入"
// @Param year query int false "会费年度"
// @Param search query string false "成员或赞助人名称，整数时也匹配金额与年度"
// @Param ordering query string false "排序字段"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Income}}
// @Router /api/v1/incomes [get]
func (h *FinanceHandler) ListIncomes(c *gin.Context) {
	dates, err := queryDateRange(c, "date")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	f := service.IncomeFilter{
		Date:     dates,
		Search:   firstQuery(c, "search"),
		Ordering: firstQuery(c, "ordering"),
		Page:     bindPage(c),
	}
	if f.Contributor, err = queryBool(c, "contributor"); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if f.Year, err = queryInt(c, "year"); err != nil {
		BadRequest(c, err.Error())
		return
	}
	list, total, err := h.finance.ListIncomes(f)
	if err != nil {
		handleError(c, err, "查询收入失败")
		return
	}
	Paged(c, list, total, f.Page)
}

// GetIncome 收入详情
// @Summary 收入详情
// @Tags 财务-收入
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response{data=models.Income}
// @Failure 404 {object} Response
// @Router /api/v1/incomes/{id} [get]
func (h *FinanceHandler) GetIncome(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	income, err := h.finance.GetIncome(id)
	if err != nil {
		handleError(c, err, "查询收入失败")
		return
	}
	Success(c, income)
}

// SaveIncome 新增或整体修改收入
// @Summary 登记收入
// @Description 同一成员同一年度会费只能登记一次
// @Tags 财务-收入
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID（仅 PUT）"
// @Param request body IncomeRequest true "收入"
// @Success 200 {object} Response{data=models.Income} "更新成功"
// @Success 201 {object} Response{data=models.Income} "新增成功"
// @Failure 400 {object} Response "引用不存在或重复登记"
// @Router /api/v1/incomes [post]
// @Router /api/v1/incomes/{id} [put]
func (h *FinanceHandler) SaveIncome(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseID(c); !ok {
			return
		}
	}
	var req IncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	income := models.Income{
		ID:                  id,
		Date:                *req.Date,
		ContributionLevelID: req.ContributionLevelID,
		MemberID:            req.MemberID,
		SponsorID:           req.SponsorID,
	}
	if err := h.finance.SaveIncome(&income); err != nil {
		handleError(c, err, "保存收入失败")
		return
	}
	respondSaved(c, id, income)
}

// DeleteIncome 删除收入
// @Summary 删除收入
// @Tags 财务-收入
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/incomes/{id} [delete]
func (h *FinanceHandler) DeleteIncome(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.finance.DeleteIncome(id); err != nil {
		handleError(c, err, "删除收入失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
