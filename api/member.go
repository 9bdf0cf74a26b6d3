package api

import (
	"fmt"
	"time"

	"genealogy/middleware"
	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// MemberHandler 族谱成员
type MemberHandler struct {
	tree   *service.FamilyTreeService
	export *service.ExportService
}

// NewMemberHandler 创建成员处理器
func NewMemberHandler(tree *service.FamilyTreeService, export *service.ExportService) *MemberHandler {
	return &MemberHandler{tree: tree, export: export}
}

// MemberRequest 新增或修改成员
// mid/fid/pids 为 mother_id/father_id/partner_ids 的简写，前者优先
// 可空字段显式传 null 表示清空，不传表示不修改
type MemberRequest struct {
	Name       *string        `json:"name" example:"张三"`
	Gender     *string        `json:"gender" example:"m"`
	BirthDate  *models.Date   `json:"birth_date" swaggertype:"string" example:"1960-01-01"`
	Education  *string        `json:"education" example:"none"`
	PartnerIDs *[]uint        `json:"partner_ids"`
	Pids       *[]uint        `json:"pids"`
	MotherID   Optional[uint] `json:"mother_id" swaggertype:"integer"`
	Mid        Optional[uint] `json:"mid" swaggertype:"integer"`
	FatherID   Optional[uint] `json:"father_id" swaggertype:"integer"`
	Fid        Optional[uint] `json:"fid" swaggertype:"integer"`

	DeathDate   Optional[models.Date] `json:"death_date" swaggertype:"string"`
	Img         Optional[string]      `json:"img" swaggertype:"string"`
	Phone       Optional[string]      `json:"phone" swaggertype:"string"`
	Email       Optional[string]      `json:"email" swaggertype:"string"`
	Address     Optional[string]      `json:"address" swaggertype:"string"`
	FamilyInfo  Optional[string]      `json:"family_info" swaggertype:"string"`
	Achievement Optional[string]      `json:"achievement" swaggertype:"string"`
	AccountID   Optional[uint]        `json:"account_id" swaggertype:"integer"`
}

func (r *MemberRequest) partnerIDs() *[]uint {
	if r.PartnerIDs != nil {
		return r.PartnerIDs
	}
	return r.Pids
}

// apply 将请求中已传的字段写入成员
func (r *MemberRequest) apply(m *models.Member) {
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.Gender != nil {
		m.Gender = *r.Gender
	}
	if r.BirthDate != nil {
		m.BirthDate = *r.BirthDate
	}
	if r.Education != nil {
		m.Education = *r.Education
	}
	if ids := r.partnerIDs(); ids != nil {
		m.PartnerIDs = *ids
		if m.PartnerIDs == nil {
			m.PartnerIDs = []uint{}
		}
	}
	r.MotherID.or(r.Mid).applyTo(&m.MotherID)
	r.FatherID.or(r.Fid).applyTo(&m.FatherID)
	r.DeathDate.applyTo(&m.DeathDate)
	r.Img.applyTo(&m.Img)
	r.Phone.applyTo(&m.Phone)
	r.Email.applyTo(&m.Email)
	r.Address.applyTo(&m.Address)
	r.FamilyInfo.applyTo(&m.FamilyInfo)
	r.Achievement.applyTo(&m.Achievement)
	r.AccountID.applyTo(&m.AccountID)
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// bindMemberFilter 读取成员列表的筛选参数
func bindMemberFilter(c *gin.Context) (service.MemberFilter, error) {
	f := service.MemberFilter{
		Gender:   firstQuery(c, "gender"),
		Search:   firstQuery(c, "search", "name"),
		Ordering: firstQuery(c, "ordering"),
		Page:     bindPage(c),
	}
	var err error
	if f.Generation, err = queryInt(c, "generation"); err != nil {
		return f, err
	}
	if f.MotherID, err = queryUint(c, "mother_id", "mid"); err != nil {
		return f, err
	}
	if f.FatherID, err = queryUint(c, "father_id", "fid"); err != nil {
		return f, err
	}
	if f.PartnerID, err = queryUint(c, "partner_id", "pid"); err != nil {
		return f, err
	}
	return f, nil
}

// List 成员列表
// @Summary 获取成员列表
// @Description 支持按性别、代数、父母、配偶筛选，search 按姓名模糊匹配；query_all=true 返回全部
// @Tags 族谱
// @Produce json
// @Security BearerAuth
// @Param gender query string false "性别"
// @Param generation query int false "代数"
// @Param mother_id query int false "母亲ID"
// @Param father_id query int false "父亲ID"
// @Param partner_id query int false "配偶ID"
// @Param search query string false "姓名关键字"
// @Param ordering query string false "排序字段，前缀 - 表示倒序"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数，默认 10"
// @Param query_all query bool false "返回全部"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Member}}
// @Router /api/v1/members [get]
func (h *MemberHandler) List(c *gin.Context) {
	f, err := bindMemberFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	list, total, err := h.tree.ListMembers(f)
	if err != nil {
		handleError(c, err, "查询成员失败")
		return
	}
	Paged(c, list, total, f.Page)
}

// Get 成员详情
// @Summary 获取成员详情
// @Tags 族谱
// @Produce json
// @Security BearerAuth
// @Param id path int true "成员ID"
// @Success 200 {object} Response{data=models.Member}
// @Failure 404 {object} Response
// @Router /api/v1/members/{id} [get]
func (h *MemberHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := h.tree.GetMember(id)
	if err != nil {
		handleError(c, err, "查询成员失败")
		return
	}
	Success(c, m)
}

// Create 新增成员
// @Summary 新增成员
// @Description 代数根据父母或配偶自动计算，ID 为当前最大 ID + 1
// @Tags 族谱
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MemberRequest true "成员信息"
// @Success 201 {object} Response{data=models.Member}
// @Failure 400 {object} Response "参数错误或引用的成员不存在"
// @Router /api/v1/members [post]
func (h *MemberHandler) Create(c *gin.Context) {
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	var m models.Member
	req.apply(&m)
	if err := h.tree.CreateMember(&m); err != nil {
		handleError(c, err, "创建成员失败")
		return
	}
	created, err := h.tree.GetMember(m.ID)
	if err != nil {
		handleError(c, err, "查询成员失败")
		return
	}
	Created(c, created)
}

// Update 修改成员（PUT 与 PATCH 均只修改已传字段）
// @Summary 修改成员
// @Description 普通成员只能修改与本人账号关联的成员资料，且不能修改 account_id
// @Tags 族谱
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "成员ID"
// @Param request body MemberRequest true "成员信息"
// @Success 200 {object} Response{data=models.Member}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/members/{id} [put]
// @Router /api/v1/members/{id} [patch]
func (h *MemberHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	m, err := h.tree.GetMember(id)
	if err != nil {
		handleError(c, err, "查询成员失败")
		return
	}
	if req.AccountID.Set && !middleware.IsSuperuser(c) && !sameID(req.AccountID.Value, m.AccountID) {
		Forbidden(c, "只有超级管理员可以修改关联账号")
		return
	}

	m.Account = nil
	m.PartnerIDs = nil
	req.apply(m)
	if err := h.tree.UpdateMember(m); err != nil {
		handleError(c, err, "修改成员失败")
		return
	}
	updated, err := h.tree.GetMember(id)
	if err != nil {
		handleError(c, err, "查询成员失败")
		return
	}
	SuccessWithMessage(c, "更新成功", updated)
}

// Delete 删除成员
// @Summary 删除成员
// @Description 仍被其他成员登记为父亲或母亲时拒绝删除
// @Tags 族谱
// @Produce json
// @Security BearerAuth
// @Param id path int true "成员ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Failure 409 {object} Response "存在子女引用"
// @Router /api/v1/members/{id} [delete]
func (h *MemberHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.tree.DeleteMember(id); err != nil {
		handleError(c, err, "删除成员失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Statistics 族谱统计
// @Summary 族谱统计
// @Description 按代数（升序）、学历、性别统计成员数量
// @Tags 族谱
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.Statistics}
// @Router /api/v1/members/statistics [get]
func (h *MemberHandler) Statistics(c *gin.Context) {
	stats, err := h.tree.Statistics()
	if err != nil {
		handleError(c, err, "统计失败")
		return
	}
	Success(c, stats)
}

// Unpaid 指定年度未缴会费的成员
// @Summary 未缴会费成员
// @Tags 族谱
// @Produce json
// @Security BearerAuth
// @Param contribution_level_year query int true "会费年度"
// @Param search query string false "姓名关键字"
// @Param page query int false "页码"
// @Param pageSize query int false "每页条数"
// @Success 200 {object} Response{data=PageResponse{results=[]models.Member}}
// @Failure 400 {object} Response "未指定年度"
// @Router /api/v1/unpaid-members [get]
func (h *MemberHandler) Unpaid(c *gin.Context) {
	year, err := queryInt(c, "contribution_level_year")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if year == nil {
		BadRequest(c, "contribution_level_year 为必填参数")
		return
	}
	p := bindPage(c)
	list, total, err := h.tree.UnpaidMembers(*year, firstQuery(c, "search", "name"), p)
	if err != nil {
		handleError(c, err, "查询失败")
		return
	}
	Paged(c, list, total, p)
}

// Export 导出成员 Excel
// @Summary 导出成员
// @Description 按列表相同的筛选条件导出全部成员
// @Tags 族谱
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "Excel 文件"
// @Router /api/v1/members/export [get]
func (h *MemberHandler) Export(c *gin.Context) {
	f, err := bindMemberFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	f.Page = service.Page{All: true}
	list, _, err := h.tree.ListMembers(f)
	if err != nil {
		handleError(c, err, "查询成员失败")
		return
	}
	buf, err := h.export.MembersXLSX(list)
	if err != nil {
		handleError(c, err, "生成 Excel 失败")
		return
	}
	sendXLSX(c, fmt.Sprintf("族谱成员_%s.xlsx", time.Now().Format("20060102")), buf)
}
