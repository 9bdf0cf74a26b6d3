package api

import (
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// SponsorRequest 赞助人
type SponsorRequest struct {
	Name      string       `json:"name" binding:"required,max=255" example:"某某公司"`
	Address   string       `json:"address" binding:"max=255"`
	Phone     string       `json:"phone" binding:"max=20"`
	Email     string       `json:"email" binding:"omitempty,email,max=100"`
	StartDate *models.Date `json:"start_date" binding:"required" swaggertype:"string" example:"2024-01-01"`
	Amount    *int64       `json:"amount" binding:"required,min=0" example:"1000"`
}

// ListSponsors 赞助人列表
// @Summary 赞助人列表
// @Tags 财务-赞助
// @Produce json
// @Security BearerAuth
// @Param search query string false "名称、电话、地址关键字，整数时也匹配金额"
// @Param start_date_after query string false "赞助日期起 (2006-01-02)"
// @Param start_date_before query string false "赞助日期止 (2006-01-02)"
// @Param ordering query string false "排序字段"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Sponsor}}
// @Router /api/v1/sponsors [get]
func (h *FinanceHandler) ListSponsors(c *gin.Context) {
	dates, err := queryDateRange(c, "start_date")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	f := service.SponsorFilter{
		Search:    firstQuery(c, "search"),
		StartDate: dates,
		Ordering:  firstQuery(c, "ordering"),
		Page:      bindPage(c),
	}
	list, total, err := h.finance.ListSponsors(f)
	if err != nil {
		handleError(c, err, "查询赞助人失败")
		return
	}
	Paged(c, list, total, f.Page)
}

// GetSponsor 赞助人详情
// @Summary 赞助人详情
// @Tags 财务-赞助
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response{data=models.Sponsor}
// @Failure 404 {object} Response
// @Router /api/v1/sponsors/{id} [get]
func (h *FinanceHandler) GetSponsor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sponsor, err := h.finance.GetSponsor(id)
	if err != nil {
		handleError(c, err, "查询赞助人失败")
		return
	}
	Success(c, sponsor)
}

// SaveSponsor 新增或整体修改赞助人
// @Summary 新增赞助人
// @Tags 财务-赞助
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID（仅 PUT）"
// @Param request body SponsorRequest true "赞助人"
// @Success 200 {object} Response{data=models.Sponsor} "更新成功"
// @Success 201 {object} Response{data=models.Sponsor} "新增成功"
// @Failure 400 {object} Response
// @Router /api/v1/sponsors [post]
// @Router /api/v1/sponsors/{id} [put]
func (h *FinanceHandler) SaveSponsor(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseID(c); !ok {
			return
		}
	}
	var req SponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	sponsor := models.Sponsor{
		ID:        id,
		Name:      req.Name,
		Address:   req.Address,
		Phone:     req.Phone,
		Email:     req.Email,
		StartDate: *req.StartDate,
		Amount:    *req.Amount,
	}
	if err := h.finance.SaveSponsor(&sponsor); err != nil {
		handleError(c, err, "保存赞助人失败")
		return
	}
	respondSaved(c, id, sponsor)
}

// DeleteSponsor 删除赞助人
// @Summary 删除赞助人
// @Tags 财务-赞助
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/sponsors/{id} [delete]
func (h *FinanceHandler) DeleteSponsor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.finance.DeleteSponsor(id); err != nil {
		handleError(c, err, "删除赞助人失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
