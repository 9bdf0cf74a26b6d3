package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"genealogy/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinanceService 会费标准、赞助、收入、支出与收支报表
type FinanceService struct {
	db *gorm.DB
}

func NewFinanceService(db *gorm.DB) *FinanceService {
	return &FinanceService{db: db}
}

// DateRange 闭区间日期筛选，零值表示不限
type DateRange struct {
	From models.Date
	To   models.Date
}

func (r DateRange) apply(query *gorm.DB, column string) *gorm.DB {
	if !r.From.IsZero() {
		query = query.Where(column+" >= ?", r.From)
	}
	if !r.To.IsZero() {
		query = query.Where(column+" <= ?", r.To)
	}
	return query
}

// parseAmount 搜索词为整数时按金额精确匹配
func parseAmount(search string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(search), 10, 64)
	return v, err == nil
}

func notFound(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

func ensureExists(tx *gorm.DB, model interface{}, id uint, what string) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return validationErrorf("%s %d 不存在", what, id)
	}
	return nil
}

// ===== 会费标准 =====

var levelOrderFields = map[string]bool{"id": true, "year": true, "amount": true}

// ListLevels 查询会费标准，search 匹配备注或年度/金额
func (s *FinanceService) ListLevels(search, ordering string, p Page) ([]models.ContributionLevel, int64, error) {
	query := s.db.Model(&models.ContributionLevel{})
	if strings.TrimSpace(search) != "" {
		if v, ok := parseAmount(search); ok {
			query = query.Where("year = ? OR amount = ? OR LOWER(note) LIKE ?", v, v, likePattern(search))
		} else {
			query = query.Where("LOWER(note) LIKE ?", likePattern(search))
		}
	}
	return paginate[models.ContributionLevel](query, &p, orderClause(ordering, levelOrderFields, "year DESC"))
}

func (s *FinanceService) GetLevel(id uint) (*models.ContributionLevel, error) {
	var level models.ContributionLevel
	if err := s.db.First(&level, id).Error; err != nil {
		return nil, notFound(err, "会费标准", id)
	}
	return &level, nil
}

// SaveLevel 新增或更新会费标准，年度唯一
func (s *FinanceService) SaveLevel(level *models.ContributionLevel) error {
	if level.Year <= 0 {
		return validationErrorf("年度必须为正整数")
	}
	if level.Amount < 0 {
		return validationErrorf("金额不能为负数")
	}
	if level.ID != 0 {
		existing, err := s.GetLevel(level.ID)
		if err != nil {
			return err
		}
		level.CreatedAt = existing.CreatedAt
	}

	var count int64
	if err := s.db.Model(&models.ContributionLevel{}).
		Where("year = ? AND id <> ?", level.Year, level.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return validationErrorf("年度 %d 的会费标准已存在", level.Year)
	}
	return translateDuplicate(s.db.Save(level).Error, "年度 %d 的会费标准已存在", level.Year)
}

// DeleteLevel 删除会费标准，关联收入保留
func (s *FinanceService) DeleteLevel(id uint) error {
	if _, err := s.GetLevel(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Income{}).Where("contribution_level_id = ?", id).Update("contribution_level_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ContributionLevel{}, id).Error
	})
}

// ===== 赞助人 =====

var sponsorOrderFields = map[string]bool{"id": true, "name": true, "start_date": true, "amount": true}

// SponsorFilter 赞助人筛选条件
type SponsorFilter struct {
	Search    string
	StartDate DateRange
	Ordering  string
	Page
}

func (s *FinanceService) ListSponsors(f SponsorFilter) ([]models.Sponsor, int64, error) {
	query := f.StartDate.apply(s.db.Model(&models.Sponsor{}), "start_date")
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		if v, ok := parseAmount(f.Search); ok {
			query = query.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(address) LIKE ? OR amount = ?", pattern, pattern, pattern, v)
		} else {
			query = query.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(address) LIKE ?", pattern, pattern, pattern)
		}
	}
	return paginate[models.Sponsor](query, &f.Page, orderClause(f.Ordering, sponsorOrderFields, "id DESC"))
}

func (s *FinanceService) GetSponsor(id uint) (*models.Sponsor, error) {
	var sponsor models.Sponsor
	if err := s.db.First(&sponsor, id).Error; err != nil {
		return nil, notFound(err, "赞助人", id)
	}
	return &sponsor, nil
}

func (s *FinanceService) SaveSponsor(sponsor *models.Sponsor) error {
	sponsor.Name = strings.TrimSpace(sponsor.Name)
	if sponsor.Name == "" {
		return validationErrorf("赞助人名称不能为空")
	}
	if sponsor.StartDate.IsZero() {
		return validationErrorf("赞助日期不能为空")
	}
	if sponsor.Amount < 0 {
		return validationErrorf("金额不能为负数")
	}
	if sponsor.ID != 0 {
		existing, err := s.GetSponsor(sponsor.ID)
		if err != nil {
			return err
		}
		sponsor.CreatedAt = existing.CreatedAt
	}
	return s.db.Save(sponsor).Error
}

func (s *FinanceService) DeleteSponsor(id uint) error {
	if _, err := s.GetSponsor(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Income{}).Where("sponsor_id = ?", id).Update("sponsor_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Sponsor{}, id).Error
	})
}

// ===== 收入 =====

var incomeOrderFields = map[string]bool{"id": true, "date": true}

// IncomeFilter 收入筛选条件
// Contributor 为 true 只看会费收入，false 只看非会费收入
type IncomeFilter struct {
	Date        DateRange
	Contributor *bool
	Year        *int
	Search      string
	Ordering    string
	Page
}

func (s *FinanceService) ListIncomes(f IncomeFilter) ([]models.Income, int64, error) {
	query := f.Date.apply(s.db.Model(&models.Income{}), "incomes.date")
	if f.Contributor != nil {
		if *f.Contributor {
			query = query.Where("incomes.contribution_level_id IS NOT NULL")
		} else {
			query = query.Where("incomes.contribution_level_id IS NULL")
		}
	}
	if f.Year != nil {
		query = query.Where("incomes.contribution_level_id IN (?)",
			s.db.Model(&models.ContributionLevel{}).Select("id").Where("year = ?", *f.Year))
	}
	if strings.TrimSpace(f.Search) != "" {
		pattern := likePattern(f.Search)
		cond := s.db.Where("incomes.member_id IN (?)",
			s.db.Model(&models.Member{}).Select("id").Where("LOWER(name) LIKE ?", pattern)).
			Or("incomes.sponsor_id IN (?)",
				s.db.Model(&models.Sponsor{}).Select("id").Where("LOWER(name) LIKE ?", pattern))
		if v, ok := parseAmount(f.Search); ok {
			cond = cond.Or("incomes.contribution_level_id IN (?)",
				s.db.Model(&models.ContributionLevel{}).Select("id").Where("year = ? OR amount = ?", v, v))
		}
		query = query.Where(cond)
	}
	order := "incomes." + orderClause(f.Ordering, incomeOrderFields, "id DESC")
	return paginate[models.Income](query, &f.Page, order, "ContributionLevel", "Member", "Sponsor")
}

func (s *FinanceService) GetIncome(id uint) (*models.Income, error) {
	var income models.Income
	if err := s.db.Preload("ContributionLevel").Preload("Member").Preload("Sponsor").First(&income, id).Error; err != nil {
		return nil, notFound(err, "收入", id)
	}
	return &income, nil
}

// SaveIncome 新增或更新收入
// 同一会费标准与成员只能对应一条收入
func (s *FinanceService) SaveIncome(income *models.Income) error {
	if income.Date.IsZero() {
		return validationErrorf("收入日期不能为空")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if income.ID != 0 {
			var existing models.Income
			if err := tx.First(&existing, income.ID).Error; err != nil {
				return notFound(err, "收入", income.ID)
			}
			income.CreatedAt = existing.CreatedAt
		}
		if income.ContributionLevelID != nil {
			if err := ensureExists(tx, &models.ContributionLevel{}, *income.ContributionLevelID, "会费标准"); err != nil {
				return err
			}
		}
		if income.SponsorID != nil {
			if err := ensureExists(tx, &models.Sponsor{}, *income.SponsorID, "赞助人"); err != nil {
				return err
			}
		}
		if income.MemberID != nil {
			if err := ensureExists(tx, &models.Member{}, *income.MemberID, "成员"); err != nil {
				return err
			}
		}
		if income.ContributionLevelID != nil && income.MemberID != nil {
			var count int64
			if err := tx.Model(&models.Income{}).
				Where("contribution_level_id = ? AND member_id = ? AND id <> ?",
					*income.ContributionLevelID, *income.MemberID, income.ID).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return validationErrorf("该成员本年度会费已登记")
			}
		}
		return tx.Omit(clause.Associations).Save(income).Error
	})
	if err != nil {
		return translateDuplicate(err, "该成员本年度会费已登记")
	}

	saved, err := s.GetIncome(income.ID)
	if err != nil {
		return err
	}
	*income = *saved
	return nil
}

func (s *FinanceService) DeleteIncome(id uint) error {
	result := s.db.Delete(&models.Income{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: 收入 %d", ErrNotFound, id)
	}
	return nil
}

// ===== 支出类别 =====

var categoryOrderFields = map[string]bool{"id": true, "name": true}

func (s *FinanceService) ListCategories(search, ordering string, p Page) ([]models.ExpenseCategory, int64, error) {
	query := s.db.Model(&models.ExpenseCategory{})
	if strings.TrimSpace(search) != "" {
		pattern := likePattern(search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(note) LIKE ?", pattern, pattern)
	}
	return paginate[models.ExpenseCategory](query, &p, orderClause(ordering, categoryOrderFields, "id ASC"))
}

func (s *FinanceService) GetCategory(id uint) (*models.ExpenseCategory, error) {
	var category models.ExpenseCategory
	if err := s.db.First(&category, id).Error; err != nil {
		return nil, notFound(err, "支出类别", id)
	}
	return &category, nil
}

func (s *FinanceService) SaveCategory(category *models.ExpenseCategory) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return validationErrorf("类别名称不能为空")
	}
	if category.ID != 0 {
		existing, err := s.GetCategory(category.ID)
		if err != nil {
			return err
		}
		category.CreatedAt = existing.CreatedAt
	}
	return s.db.Save(category).Error
}

// DeleteCategory 删除类别，原有支出的类别置空
func (s *FinanceService) DeleteCategory(id uint) error {
	if _, err := s.GetCategory(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Expense{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ExpenseCategory{}, id).Error
	})
}

// ===== 支出 =====

var expenseOrderFields = map[string]bool{"id": true, "date": true, "amount": true}

// ExpenseFilter 支出筛选条件
type ExpenseFilter struct {
	Date       DateRange
	CategoryID *uint
	Search     string
	Ordering   string
	Page
}

func (s *FinanceService) ListExpenses(f ExpenseFilter) ([]models.Expense, int64, error) {
	query := f.Date.apply(s.db.Model(&models.Expense{}), "date")
	if f.CategoryID != nil {
		query = query.Where("category_id = ?", *f.CategoryID)
	}
	if strings.TrimSpace(f.Search) != "" {
		byCategory := s.db.Model(&models.ExpenseCategory{}).Select("id").Where("LOWER(name) LIKE ?", likePattern(f.Search))
		if v, ok := parseAmount(f.Search); ok {
			query = query.Where("category_id IN (?) OR amount = ?", byCategory, v)
		} else {
			query = query.Where("category_id IN (?)", byCategory)
		}
	}
	return paginate[models.Expense](query, &f.Page, orderClause(f.Ordering, expenseOrderFields, "date DESC"), "Category")
}

func (s *FinanceService) GetExpense(id uint) (*models.Expense, error) {
	var expense models.Expense
	if err := s.db.Preload("Category").First(&expense, id).Error; err != nil {
		return nil, notFound(err, "支出", id)
	}
	return &expense, nil
}

func (s *FinanceService) SaveExpense(expense *models.Expense) error {
	if expense.Amount <= 0 {
		return validationErrorf("支出金额必须大于0")
	}
	if expense.Date.IsZero() {
		return validationErrorf("支出日期不能为空")
	}
	if expense.CategoryID != nil {
		if err := ensureExists(s.db, &models.ExpenseCategory{}, *expense.CategoryID, "支出类别"); err != nil {
			return err
		}
	}
	if expense.ID != 0 {
		existing, err := s.GetExpense(expense.ID)
		if err != nil {
			return err
		}
		expense.CreatedAt = existing.CreatedAt
	}
	if err := s.db.Omit(clause.Associations).Save(expense).Error; err != nil {
		return err
	}
	saved, err := s.GetExpense(expense.ID)
	if err != nil {
		return err
	}
	*expense = *saved
	return nil
}

func (s *FinanceService) DeleteExpense(id uint) error {
	result := s.db.Delete(&models.Expense{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: 支出 %d", ErrNotFound, id)
	}
	return nil
}

// ===== 收支报表 =====

// 报表类型
const (
	ReportIncome  = "income"
	ReportExpense = "expense"
	ReportAll     = "all"
)

// ReportFilter 报表条件，Search 为整数时按金额匹配
type ReportFilter struct {
	Type   string
	Date   DateRange
	Search string
}

// Report 收支报表
// TotalAmount = 会费收入 + 赞助 - 支出
type Report struct {
	Incomes       []models.Income  `json:"incomes"`
	Sponsors      []models.Sponsor `json:"sponsors"`
	Expenses      []models.Expense `json:"expenses"`
	TotalIncomes  int64            `json:"total_incomes"`
	TotalSponsors int64            `json:"total_sponsors"`
	TotalExpenses int64            `json:"total_expenses"`
	TotalAmount   int64            `json:"total_amount"`
}

// Report 生成收支报表
func (s *FinanceService) Report(f ReportFilter) (*Report, error) {
	if f.Type == "" {
		f.Type = ReportAll
	}
	if f.Type != ReportIncome && f.Type != ReportExpense && f.Type != ReportAll {
		return nil, validationErrorf("无效的报表类型: %s", f.Type)
	}
	search := strings.TrimSpace(f.Search)
	byAmount := search != ""
	pattern := likePattern(search)

	report := &Report{
		Incomes:  []models.Income{},
		Sponsors: []models.Sponsor{},
		Expenses: []models.Expense{},
	}

	if f.Type != ReportExpense {
		query := f.Date.apply(s.db.Model(&models.Income{}), "incomes.date").
			Joins("JOIN contribution_levels ON contribution_levels.id = incomes.contribution_level_id")
		if byAmount {
			query = query.Where(amountText(s.db, "contribution_levels.amount")+" LIKE ?", pattern)
		}
		if err := query.Preload("ContributionLevel").Preload("Member").Preload("Sponsor").
			Order("incomes.date ASC").Find(&report.Incomes).Error; err != nil {
			return nil, err
		}
		for _, in := range report.Incomes {
			if in.ContributionLevel != nil {
				report.TotalIncomes += in.ContributionLevel.Amount
			}
		}

		sq := f.Date.apply(s.db.Model(&models.Sponsor{}), "start_date")
		if byAmount {
			sq = sq.Where(amountText(s.db, "amount")+" LIKE ?", pattern)
		}
		if err := sq.Order("start_date ASC").Find(&report.Sponsors).Error; err != nil {
			return nil, err
		}
		for _, sp := range report.Sponsors {
			report.TotalSponsors += sp.Amount
		}
	}

	if f.Type != ReportIncome {
		eq := f.Date.apply(s.db.Model(&models.Expense{}), "date")
		if byAmount {
			eq = eq.Where(amountText(s.db, "amount")+" LIKE ?", pattern)
		}
		if err := eq.Preload("Category").Order("date ASC").Find(&report.Expenses).Error; err != nil {
			return nil, err
		}
		for _, e := range report.Expenses {
			report.TotalExpenses += e.Amount
		}
	}

	report.TotalAmount = report.TotalIncomes + report.TotalSponsors - report.TotalExpenses
	return report, nil
}

// amountText 金额列转为文本，用于按金额片段模糊匹配
// postgres 的 CHAR 为定长一位，需转为 TEXT
func amountText(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return "CAST(" + column + " AS TEXT)"
	}
	return "CAST(" + column + " AS CHAR)"
}

// translateDuplicate 唯一约束冲突转为参数错误
func translateDuplicate(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validationErrorf(format, args...)
	}
	return err
}
