package service

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"genealogy/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var phoneRegex = regexp.MustCompile(`^\+?0\d{9,10}$`)

// FamilyTreeService 族谱图存储：成员、配偶关系、代数派生与删除保护
type FamilyTreeService struct {
	db *gorm.DB
}

func NewFamilyTreeService(db *gorm.DB) *FamilyTreeService {
	return &FamilyTreeService{db: db}
}

// MemberFilter 成员列表筛选条件
type MemberFilter struct {
	Gender     string
	Generation *int
	MotherID   *uint
	FatherID   *uint
	PartnerID  *uint
	Search     string
	Ordering   string
	Page
}

var memberOrderFields = map[string]bool{
	"id": true, "name": true, "gender": true, "generation": true,
	"birth_date": true, "death_date": true, "education": true,
}

// GenerationCount 按代数统计
type GenerationCount struct {
	Generation  int   `json:"generation"`
	MemberCount int64 `json:"member_count"`
}

// EducationCount 按学历统计
type EducationCount struct {
	Education   string `json:"education"`
	MemberCount int64  `json:"member_count"`
}

// GenderCount 按性别统计
type GenderCount struct {
	Gender      string `json:"gender"`
	MemberCount int64  `json:"member_count"`
}

// Statistics 成员统计
type Statistics struct {
	Generations []GenerationCount `json:"generations"`
	Educations  []EducationCount  `json:"educations"`
	Genders     []GenderCount     `json:"genders"`
}

// RelativeSummary 亲属简要信息
type RelativeSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Identity 登录后返回的身份信息
// 关联了成员时展开成员字段并附带父母与首位配偶的简要信息；否则仅有占位名称
type Identity struct {
	*models.Member
	Name        string           `json:"name"`
	IsAdmin     bool             `json:"is_admin"`
	IsSuperuser bool             `json:"is_superuser"`
	Mother      *RelativeSummary `json:"mother,omitempty"`
	Father      *RelativeSummary `json:"father,omitempty"`
	Partner     *RelativeSummary `json:"partner,omitempty"`
}

// CreateMember 新增成员：校验引用、分配ID、计算代数并写入配偶关系
func (s *FamilyTreeService) CreateMember(m *models.Member) error {
	if err := validateMember(m); err != nil {
		return err
	}
	partnerIDs := normalizeIDs(m.PartnerIDs)

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := checkMemberRefs(tx, 0, m.MotherID, m.FatherID, partnerIDs); err != nil {
			return err
		}
		if err := checkAccountLink(tx, 0, m.AccountID); err != nil {
			return err
		}

		id, err := nextMemberID(tx)
		if err != nil {
			return err
		}
		m.ID = id

		gen, err := computeGeneration(tx, m.MotherID, m.FatherID, partnerIDs, 1)
		if err != nil {
			return err
		}
		m.Generation = gen

		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return fmt.Errorf("创建成员失败: %w", err)
		}
		if err := replacePartners(tx, m.ID, partnerIDs); err != nil {
			return err
		}
		m.PartnerIDs = partnerIDs

		return propagateGeneration(tx, partnerIDs)
	})
}

// UpdateMember 更新成员
// m.PartnerIDs 为 nil 时保留原配偶关系，非 nil（含空切片）时整体替换
func (s *FamilyTreeService) UpdateMember(m *models.Member) error {
	if err := validateMember(m); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Member
		if err := tx.First(&existing, m.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 成员 %d", ErrNotFound, m.ID)
			}
			return err
		}
		oldPartners, err := partnerIDsOf(tx, m.ID)
		if err != nil {
			return err
		}
		partnerIDs := oldPartners
		if m.PartnerIDs != nil {
			partnerIDs = normalizeIDs(m.PartnerIDs)
		}

		if err := checkMemberRefs(tx, m.ID, m.MotherID, m.FatherID, partnerIDs); err != nil {
			return err
		}
		if err := checkAccountLink(tx, m.ID, m.AccountID); err != nil {
			return err
		}

		gen, err := computeGeneration(tx, m.MotherID, m.FatherID, partnerIDs, existing.Generation)
		if err != nil {
			return err
		}
		m.Generation = gen
		m.CreatedAt = existing.CreatedAt

		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return fmt.Errorf("更新成员失败: %w", err)
		}
		if m.PartnerIDs != nil {
			if err := replacePartners(tx, m.ID, partnerIDs); err != nil {
				return err
			}
		}
		m.PartnerIDs = partnerIDs

		// 子女、现配偶以及被解除关系的原配偶都可能依赖本成员
		children, err := childIDsOf(tx, m.ID)
		if err != nil {
			return err
		}
		dependents := append(children, partnerIDs...)
		dependents = append(dependents, oldPartners...)
		return propagateGeneration(tx, normalizeIDs(dependents))
	})
}

// DeleteMember 删除成员
// 被其他成员登记为父亲或母亲时拒绝删除；否则一并清理配偶关系、活动出席、收入关联以及关联账号
func (s *FamilyTreeService) DeleteMember(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var m models.Member
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: 成员 %d", ErrNotFound, id)
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.Member{}).
			Where("mother_id = ? OR father_id = ?", id, id).
			Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: 成员 %d 仍被 %d 名成员登记为父母", ErrReferentialIntegrity, id, refs)
		}

		partners, err := partnerIDsOf(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Where("low_id = ? OR high_id = ?", id, id).Delete(&models.Partnership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.EventAttendee{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Income{}).Where("member_id = ?", id).Update("member_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Member{}, id).Error; err != nil {
			return err
		}
		if m.AccountID != nil {
			if err := tx.Where("account_id = ?", *m.AccountID).Delete(&models.PasswordReset{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Account{}, *m.AccountID).Error; err != nil {
				return err
			}
		}

		// 配偶数量变化可能改变其代数
		return propagateGeneration(tx, partners)
	})
}

// GetMember 按ID获取成员
func (s *FamilyTreeService) GetMember(id uint) (*models.Member, error) {
	var m models.Member
	if err := s.db.Preload("Account").First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 成员 %d", ErrNotFound, id)
		}
		return nil, err
	}
	partners, err := partnerIDsOf(s.db, id)
	if err != nil {
		return nil, err
	}
	m.PartnerIDs = partners
	return &m, nil
}

// ListMembers 按条件分页查询成员
func (s *FamilyTreeService) ListMembers(f MemberFilter) ([]models.Member, int64, error) {
	query := s.db.Model(&models.Member{})
	if f.Gender != "" {
		query = query.Where("gender = ?", f.Gender)
	}
	if f.Generation != nil {
		query = query.Where("generation = ?", *f.Generation)
	}
	if f.MotherID != nil {
		query = query.Where("mother_id = ?", *f.MotherID)
	}
	if f.FatherID != nil {
		query = query.Where("father_id = ?", *f.FatherID)
	}
	if f.PartnerID != nil {
		query = query.Where(
			"id IN (?) OR id IN (?)",
			s.db.Model(&models.Partnership{}).Select("high_id").Where("low_id = ?", *f.PartnerID),
			s.db.Model(&models.Partnership{}).Select("low_id").Where("high_id = ?", *f.PartnerID),
		)
	}
	if strings.TrimSpace(f.Search) != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(f.Search))
	}

	list, total, err := paginate[models.Member](query, &f.Page, orderClause(f.Ordering, memberOrderFields, "id ASC"), "Account")
	if err != nil {
		return nil, 0, err
	}
	if err := attachPartnerIDs(s.db, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Statistics 按代数、学历、性别统计成员数量
func (s *FamilyTreeService) Statistics() (*Statistics, error) {
	stats := &Statistics{
		Generations: []GenerationCount{},
		Educations:  []EducationCount{},
		Genders:     []GenderCount{},
	}
	if err := s.db.Model(&models.Member{}).
		Select("generation, COUNT(id) AS member_count").
		Group("generation").
		Order("generation ASC").
		Scan(&stats.Generations).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Member{}).
		Select("education, COUNT(id) AS member_count").
		Group("education").
		Order("education ASC").
		Scan(&stats.Educations).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Member{}).
		Select("gender, COUNT(id) AS member_count").
		Group("gender").
		Order("gender ASC").
		Scan(&stats.Genders).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// ResolveIdentity 根据账号解析登录身份
func (s *FamilyTreeService) ResolveIdentity(account *models.Account) (*Identity, error) {
	var m models.Member
	err := s.db.Preload("Account").Where("account_id = ?", account.ID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Identity{
			Name:        "Superuser",
			IsAdmin:     account.IsSuperuser,
			IsSuperuser: account.IsSuperuser,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	partners, err := partnerIDsOf(s.db, m.ID)
	if err != nil {
		return nil, err
	}
	m.PartnerIDs = partners

	id := &Identity{
		Member:      &m,
		Name:        m.Name,
		IsAdmin:     m.IsAdmin,
		IsSuperuser: account.IsSuperuser,
	}
	if id.Mother, err = s.relativeSummary(m.MotherID); err != nil {
		return nil, err
	}
	if id.Father, err = s.relativeSummary(m.FatherID); err != nil {
		return nil, err
	}
	if pid, ok := m.FirstPartnerID(); ok {
		if id.Partner, err = s.relativeSummary(&pid); err != nil {
			return nil, err
		}
	}
	return id, nil
}

func (s *FamilyTreeService) relativeSummary(id *uint) (*RelativeSummary, error) {
	if id == nil {
		return nil, nil
	}
	var r RelativeSummary
	err := s.db.Model(&models.Member{}).Select("id, name").Where("id = ?", *id).Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UnpaidMembers 查询指定年度尚未缴纳会费的成员，可按姓名模糊筛选
func (s *FamilyTreeService) UnpaidMembers(year int, search string, p Page) ([]models.Member, int64, error) {
	paid := s.db.Table("incomes").
		Select("1").
		Joins("JOIN contribution_levels ON contribution_levels.id = incomes.contribution_level_id").
		Where("incomes.member_id = members.id AND contribution_levels.year = ?", year)

	query := s.db.Model(&models.Member{}).Where("NOT EXISTS (?)", paid)
	if strings.TrimSpace(search) != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}

	list, total, err := paginate[models.Member](query, &p, "id ASC", "Account")
	if err != nil {
		return nil, 0, err
	}
	if err := attachPartnerIDs(s.db, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ===== 内部实现 =====

func validateMember(m *models.Member) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return validationErrorf("姓名不能为空")
	}
	if strings.TrimSpace(m.Gender) == "" {
		return validationErrorf("性别不能为空")
	}
	if m.BirthDate.IsZero() {
		return validationErrorf("出生日期不能为空")
	}
	if m.DeathDate != nil && !m.DeathDate.IsZero() && m.DeathDate.Before(m.BirthDate.Time) {
		return validationErrorf("去世日期不能早于出生日期")
	}
	if m.Education == "" {
		m.Education = models.EducationNone
	}
	if !models.IsValidEducation(m.Education) {
		return validationErrorf("无效的学历: %s", m.Education)
	}
	if m.Phone != nil && *m.Phone != "" && !phoneRegex.MatchString(*m.Phone) {
		return validationErrorf("手机号格式不正确")
	}
	return nil
}

// checkMemberRefs 校验父母与配偶均存在，且不构成自引用或祖先环
func checkMemberRefs(tx *gorm.DB, selfID uint, motherID, fatherID *uint, partnerIDs []uint) error {
	if motherID != nil && fatherID != nil && *motherID == *fatherID {
		return validationErrorf("父亲与母亲不能是同一人")
	}
	for _, ref := range []struct {
		label string
		id    *uint
	}{{"母亲", motherID}, {"父亲", fatherID}} {
		if ref.id == nil {
			continue
		}
		if selfID != 0 && *ref.id == selfID {
			return validationErrorf("%s不能是本人", ref.label)
		}
		if err := ensureMemberExists(tx, *ref.id, ref.label); err != nil {
			return err
		}
	}
	for _, pid := range partnerIDs {
		if selfID != 0 && pid == selfID {
			return validationErrorf("配偶不能是本人")
		}
		if err := ensureMemberExists(tx, pid, "配偶"); err != nil {
			return err
		}
	}

	if selfID != 0 {
		var parents []uint
		if motherID != nil {
			parents = append(parents, *motherID)
		}
		if fatherID != nil {
			parents = append(parents, *fatherID)
		}
		isAncestor, err := reachesAncestor(tx, parents, selfID)
		if err != nil {
			return err
		}
		if isAncestor {
			return validationErrorf("不能将自己的后代登记为父母")
		}
	}
	return nil
}

func ensureMemberExists(tx *gorm.DB, id uint, label string) error {
	var count int64
	if err := tx.Model(&models.Member{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return validationErrorf("%s %d 不存在", label, id)
	}
	return nil
}

// checkAccountLink 账号与成员一对一
func checkAccountLink(tx *gorm.DB, selfID uint, accountID *uint) error {
	if accountID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Account{}).Where("id = ?", *accountID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return validationErrorf("账号 %d 不存在", *accountID)
	}
	if err := tx.Model(&models.Member{}).Where("account_id = ? AND id <> ?", *accountID, selfID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return validationErrorf("账号 %d 已关联其他成员", *accountID)
	}
	return nil
}

// reachesAncestor 从 start 沿父母关系向上查找 target
func reachesAncestor(tx *gorm.DB, start []uint, target uint) (bool, error) {
	visited := make(map[uint]bool)
	queue := append([]uint(nil), start...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == target {
			return true, nil
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		var m models.Member
		if err := tx.Select("id, mother_id, father_id").First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return false, err
		}
		queue = append(queue, m.ParentIDs()...)
	}
	return false, nil
}

// nextMemberID 取当前最大ID加一，删除留下的空号不复用
func nextMemberID(tx *gorm.DB) (uint, error) {
	var maxID uint
	if err := tx.Model(&models.Member{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
		return 0, err
	}
	return maxID + 1, nil
}

// computeGeneration 代数规则：
//  1. 登记了父亲或母亲：父母最大代数 + 1
//  2. 否则只有一位配偶且配偶登记了父母：配偶父母最大代数 + 1
//  3. 否则只有一位配偶且配偶无父母：视为始祖夫妇，代数为 1
//  4. 既无父母也无配偶：代数为 1
//  5. 有多位配偶且无父母：保留 previous
func computeGeneration(tx *gorm.DB, motherID, fatherID *uint, partnerIDs []uint, previous int) (int, error) {
	if previous < 1 {
		previous = 1
	}

	parents := make([]uint, 0, 2)
	if motherID != nil {
		parents = append(parents, *motherID)
	}
	if fatherID != nil {
		parents = append(parents, *fatherID)
	}
	if len(parents) > 0 {
		maxGen, err := maxGeneration(tx, parents)
		if err != nil {
			return 0, err
		}
		if maxGen == 0 {
			return 0, validationErrorf("父母 %v 不存在", parents)
		}
		return maxGen + 1, nil
	}

	switch len(partnerIDs) {
	case 0:
		return 1, nil
	case 1:
	default:
		return previous, nil
	}

	var partner models.Member
	if err := tx.Select("id, mother_id, father_id").First(&partner, partnerIDs[0]).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, validationErrorf("配偶 %d 不存在", partnerIDs[0])
		}
		return 0, err
	}
	if !partner.HasParent() {
		return 1, nil
	}
	maxGen, err := maxGeneration(tx, partner.ParentIDs())
	if err != nil {
		return 0, err
	}
	if maxGen == 0 {
		return 1, nil
	}
	return maxGen + 1, nil
}

// maxGeneration 代数从 1 开始，返回 0 表示成员均不存在
func maxGeneration(tx *gorm.DB, ids []uint) (int, error) {
	var maxGen int
	err := tx.Model(&models.Member{}).
		Select("COALESCE(MAX(generation), 0)").
		Where("id IN ?", ids).
		Scan(&maxGen).Error
	return maxGen, err
}

// propagateGeneration 从受影响的成员开始按广度优先重新计算代数
// 只有代数发生变化的成员才会继续传播给其子女与配偶
func propagateGeneration(tx *gorm.DB, start []uint) error {
	if len(start) == 0 {
		return nil
	}
	var total int64
	if err := tx.Model(&models.Member{}).Count(&total).Error; err != nil {
		return err
	}
	budget := int(total)*4 + len(start)

	queue := append([]uint(nil), start...)
	for len(queue) > 0 {
		if budget--; budget < 0 {
			return validationErrorf("成员关系存在循环，无法计算代数")
		}
		id := queue[0]
		queue = queue[1:]

		var m models.Member
		if err := tx.Select("id, mother_id, father_id, generation").First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		partners, err := partnerIDsOf(tx, id)
		if err != nil {
			return err
		}
		gen, err := computeGeneration(tx, m.MotherID, m.FatherID, partners, m.Generation)
		if err != nil {
			return err
		}
		if gen == m.Generation {
			continue
		}
		if err := tx.Model(&models.Member{}).Where("id = ?", id).Update("generation", gen).Error; err != nil {
			return err
		}
		children, err := childIDsOf(tx, id)
		if err != nil {
			return err
		}
		queue = append(queue, children...)
		queue = append(queue, partners...)
	}
	return nil
}

func childIDsOf(tx *gorm.DB, id uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&models.Member{}).
		Where("mother_id = ? OR father_id = ?", id, id).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// partnerIDsOf 返回配偶ID（升序）
func partnerIDsOf(tx *gorm.DB, id uint) ([]uint, error) {
	var pairs []models.Partnership
	if err := tx.Where("low_id = ? OR high_id = ?", id, id).Find(&pairs).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.Other(id))
	}
	return normalizeIDs(ids), nil
}

func attachPartnerIDs(tx *gorm.DB, list []models.Member) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	var pairs []models.Partnership
	if err := tx.Where("low_id IN ? OR high_id IN ?", ids, ids).Find(&pairs).Error; err != nil {
		return err
	}
	byMember := make(map[uint][]uint)
	for _, p := range pairs {
		byMember[p.LowID] = append(byMember[p.LowID], p.HighID)
		byMember[p.HighID] = append(byMember[p.HighID], p.LowID)
	}
	for i := range list {
		list[i].PartnerIDs = normalizeIDs(byMember[list[i].ID])
	}
	return nil
}

func replacePartners(tx *gorm.DB, id uint, partnerIDs []uint) error {
	if err := tx.Where("low_id = ? OR high_id = ?", id, id).Delete(&models.Partnership{}).Error; err != nil {
		return err
	}
	if len(partnerIDs) == 0 {
		return nil
	}
	pairs := make([]models.Partnership, 0, len(partnerIDs))
	for _, pid := range partnerIDs {
		pairs = append(pairs, models.NewPartnership(id, pid))
	}
	if err := tx.Create(&pairs).Error; err != nil {
		return fmt.Errorf("保存配偶关系失败: %w", err)
	}
	return nil
}

// normalizeIDs 去重并升序，总是返回非 nil 切片
func normalizeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
