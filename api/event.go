package api

import (
	"genealogy/middleware"
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// EventHandler 家族活动
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler 创建活动处理器
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// EventRequest 活动
type EventRequest struct {
	Name        string       `json:"name" binding:"required,max=255" example:"清明祭祖"`
	Location    string       `json:"location" binding:"required,max=255" example:"祠堂"`
	Date        *models.Date `json:"date" binding:"required" swaggertype:"string" example:"2024-04-04"`
	Description *string      `json:"description"`
	Attendees   []uint       `json:"attendees"`
}

// List 活动列表
// @Summary 活动列表
// @Description 超级管理员可见全部活动，普通成员仅可见本人出席的活动
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param date_after query string false "日期起 (2006-01-02)"
// @Param date_before query string false "日期止 (2006-01-02)"
// @Param search query string false "名称、地点、描述关键字"
// @Param ordering query string false "排序字段"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Event}}
// @Router /api/v1/events [get]
func (h *EventHandler) List(c *gin.Context) {
	dates, err := queryDateRange(c, "date")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	f := service.EventFilter{
		Date:     dates,
		Search:   firstQuery(c, "search"),
		Ordering: firstQuery(c, "ordering"),
		Page:     bindPage(c),
	}
	viewer := service.Viewer{
		AccountID:   middleware.GetCurrentAccountID(c),
		IsSuperuser: middleware.IsSuperuser(c),
	}
	list, total, err := h.events.ListEvents(viewer, f)
	if err != nil {
		handleError(c, err, "查询活动失败")
		return
	}
	Paged(c, list, total, f.Page)
}

// Get 活动详情
// @Summary 活动详情
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} Response{data=models.Event}
// @Failure 404 {object} Response
// @Router /api/v1/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	event, err := h.events.GetEvent(id)
	if err != nil {
		handleError(c, err, "查询活动失败")
		return
	}
	Success(c, event)
}

// Save 新增或整体修改活动
// @Summary 新增活动
// @Description attendees 为出席成员ID，须全部存在
// @Tags 活动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID（仅 PUT）"
// @Param request body EventRequest true "活动"
// @Success 200 {object} Response{data=models.Event} "更新成功"
// @Success 201 {object} Response{data=models.Event} "新增成功"
// @Failure 400 {object} Response
// @Router /api/v1/events [post]
// @Router /api/v1/events/{id} [put]
func (h *EventHandler) Save(c *gin.Context) {
	var id uint
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseID(c); !ok {
			return
		}
	}
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	event := models.Event{
		ID:          id,
		Name:        req.Name,
		Location:    req.Location,
		Date:        *req.Date,
		Description: req.Description,
		AttendeeIDs: req.Attendees,
	}
	if err := h.events.SaveEvent(&event); err != nil {
		handleError(c, err, "保存活动失败")
		return
	}
	respondSaved(c, id, event)
}

// Delete 删除活动
// @Summary 删除活动
// @Tags 活动
// @Produce json
// @Security BearerAuth
// @Param id path int true "活动ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.events.DeleteEvent(id); err != nil {
		handleError(c, err, "删除活动失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
