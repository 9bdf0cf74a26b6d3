package service

import (
	"testing"

	"genealogy/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinance_LevelYearUnique(t *testing.T) {
	svc := NewFinanceService(setupTestDB(t))

	level := &models.ContributionLevel{Year: 2024, Amount: 200}
	require.NoError(t, svc.SaveLevel(level))
	assert.ErrorIs(t, svc.SaveLevel(&models.ContributionLevel{Year: 2024, Amount: 100}), ErrValidation)
	assert.ErrorIs(t, svc.SaveLevel(&models.ContributionLevel{Year: 0, Amount: 100}), ErrValidation)

	level.Amount = 300
	require.NoError(t, svc.SaveLevel(level))
	got, err := svc.GetLevel(level.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Amount)

	require.NoError(t, svc.SaveLevel(&models.ContributionLevel{Year: 2023, Amount: 150}))
	list, total, err := svc.ListLevels("", "", Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, 2024, list[0].Year)

	list, _, err = svc.ListLevels("150", "", Page{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2023, list[0].Year)
}

func TestFinance_IncomeUniquePerLevelAndMember(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFinanceService(db)
	tree := NewFamilyTreeService(db)

	member := mustCreate(t, tree, newMember("张三", "male"))
	level := &models.ContributionLevel{Year: 2024, Amount: 200}
	require.NoError(t, svc.SaveLevel(level))

	first := &models.Income{Date: models.NewDate(2024, 2, 1), ContributionLevelID: &level.ID, MemberID: &member.ID}
	require.NoError(t, svc.SaveIncome(first))
	require.NotNil(t, first.ContributionLevel)
	assert.Equal(t, int64(200), first.Amount())

	dup := &models.Income{Date: models.NewDate(2024, 3, 1), ContributionLevelID: &level.ID, MemberID: &member.ID}
	assert.ErrorIs(t, svc.SaveIncome(dup), ErrValidation)

	// 更新自身不算重复
	first.Date = models.NewDate(2024, 2, 2)
	require.NoError(t, svc.SaveIncome(first))

	missing := uint(99)
	assert.ErrorIs(t, svc.SaveIncome(&models.Income{Date: models.NewDate(2024, 1, 1), MemberID: &missing}), ErrValidation)
	assert.ErrorIs(t, svc.SaveIncome(&models.Income{ContributionLevelID: &level.ID}), ErrValidation)
}

func TestFinance_ListIncomesFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFinanceService(db)
	tree := NewFamilyTreeService(db)

	member := mustCreate(t, tree, newMember("Zhang San", "male"))
	l2023 := &models.ContributionLevel{Year: 2023, Amount: 150}
	l2024 := &models.ContributionLevel{Year: 2024, Amount: 200}
	require.NoError(t, svc.SaveLevel(l2023))
	require.NoError(t, svc.SaveLevel(l2024))
	sponsor := &models.Sponsor{Name: "Acme", StartDate: models.NewDate(2024, 5, 1), Amount: 1000}
	require.NoError(t, svc.SaveSponsor(sponsor))

	require.NoError(t, svc.SaveIncome(&models.Income{Date: models.NewDate(2023, 6, 1), ContributionLevelID: &l2023.ID, MemberID: &member.ID}))
	require.NoError(t, svc.SaveIncome(&models.Income{Date: models.NewDate(2024, 6, 1), ContributionLevelID: &l2024.ID, MemberID: &member.ID}))
	require.NoError(t, svc.SaveIncome(&models.Income{Date: models.NewDate(2024, 7, 1), SponsorID: &sponsor.ID}))

	yes, no := true, false
	year := 2024

	_, total, err := svc.ListIncomes(IncomeFilter{Contributor: &yes})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	list, total, err := svc.ListIncomes(IncomeFilter{Contributor: &no})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.NotNil(t, list[0].Sponsor)
	assert.Equal(t, "Acme", list[0].Sponsor.Name)

	_, total, err = svc.ListIncomes(IncomeFilter{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.ListIncomes(IncomeFilter{Date: DateRange{From: models.NewDate(2024, 1, 1)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = svc.ListIncomes(IncomeFilter{Search: "zhang"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = svc.ListIncomes(IncomeFilter{Search: "2023"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestFinance_DeleteLevelKeepsIncome(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFinanceService(db)

	level := &models.ContributionLevel{Year: 2024, Amount: 200}
	require.NoError(t, svc.SaveLevel(level))
	income := &models.Income{Date: models.NewDate(2024, 1, 1), ContributionLevelID: &level.ID}
	require.NoError(t, svc.SaveIncome(income))

	require.NoError(t, svc.DeleteLevel(level.ID))
	got, err := svc.GetIncome(income.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ContributionLevelID)

	assert.ErrorIs(t, svc.DeleteLevel(level.ID), ErrNotFound)
	require.NoError(t, svc.DeleteIncome(income.ID))
	assert.ErrorIs(t, svc.DeleteIncome(income.ID), ErrNotFound)
}

func TestFinance_CategoriesAndExpenses(t *testing.T) {
	svc := NewFinanceService(setupTestDB(t))

	cat := &models.ExpenseCategory{Name: "修缮"}
	require.NoError(t, svc.SaveCategory(cat))
	assert.ErrorIs(t, svc.SaveCategory(&models.ExpenseCategory{Name: " "}), ErrValidation)

	expense := &models.Expense{Amount: 500, Date: models.NewDate(2024, 3, 1), CategoryID: &cat.ID}
	require.NoError(t, svc.SaveExpense(expense))
	require.NotNil(t, expense.Category)
	assert.Equal(t, "修缮", expense.Category.Name)

	missing := uint(42)
	assert.ErrorIs(t, svc.SaveExpense(&models.Expense{Amount: 1, Date: models.NewDate(2024, 1, 1), CategoryID: &missing}), ErrValidation)
	assert.ErrorIs(t, svc.SaveExpense(&models.Expense{Amount: 0, Date: models.NewDate(2024, 1, 1)}), ErrValidation)

	require.NoError(t, svc.SaveExpense(&models.Expense{Amount: 80, Date: models.NewDate(2024, 5, 1)}))

	list, total, err := svc.ListExpenses(ExpenseFilter{Search: "修"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, expense.ID, list[0].ID)

	_, total, err = svc.ListExpenses(ExpenseFilter{Search: "80"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.ListExpenses(ExpenseFilter{Date: DateRange{To: models.NewDate(2024, 4, 1)}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	require.NoError(t, svc.DeleteCategory(cat.ID))
	got, err := svc.GetExpense(expense.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}

func TestFinance_Report(t *testing.T) {
	db := setupTestDB(t)
	svc := NewFinanceService(db)
	tree := NewFamilyTreeService(db)

	a := mustCreate(t, tree, newMember("甲", "male"))
	b := mustCreate(t, tree, newMember("乙", "male"))
	level := &models.ContributionLevel{Year: 2024, Amount: 200}
	require.NoError(t, svc.SaveLevel(level))
	require.NoError(t, svc.SaveIncome(&models.Income{Date: models.NewDate(2024, 1, 10), ContributionLevelID: &level.ID, MemberID: &a.ID}))
	require.NoError(t, svc.SaveIncome(&models.Income{Date: models.NewDate(2024, 2, 10), ContributionLevelID: &level.ID, MemberID: &b.ID}))
	require.NoError(t, svc.SaveSponsor(&models.Sponsor{Name: "赞助", StartDate: models.NewDate(2024, 3, 1), Amount: 1000}))
	require.NoError(t, svc.SaveExpense(&models.Expense{Amount: 300, Date: models.NewDate(2024, 4, 1)}))

	report, err := svc.Report(ReportFilter{Type: ReportAll})
	require.NoError(t, err)
	assert.Equal(t, int64(400), report.TotalIncomes)
	assert.Equal(t, int64(1000), report.TotalSponsors)
	assert.Equal(t, int64(300), report.TotalExpenses)
	assert.Equal(t, int64(1100), report.TotalAmount)

	report, err = svc.Report(ReportFilter{Type: ReportIncome})
	require.NoError(t, err)
	assert.Empty(t, report.Expenses)
	assert.Equal(t, int64(1400), report.TotalAmount)

	report, err = svc.Report(ReportFilter{Type: ReportExpense})
	require.NoError(t, err)
	assert.Empty(t, report.Incomes)
	assert.Equal(t, int64(-300), report.TotalAmount)

	report, err = svc.Report(ReportFilter{Type: ReportAll, Date: DateRange{
		From: models.NewDate(2024, 2, 1),
		To:   models.NewDate(2024, 3, 31),
	}})
	require.NoError(t, err)
	assert.Len(t, report.Incomes, 1)
	assert.Len(t, report.Sponsors, 1)
	assert.Empty(t, report.Expenses)

	report, err = svc.Report(ReportFilter{Search: "1000"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), report.TotalAmount)

	_, err = svc.Report(ReportFilter{Type: "profit"})
	assert.ErrorIs(t, err, ErrValidation)

	// 金额按片段匹配
	report, err = svc.Report(ReportFilter{Search: "00"})
	require.NoError(t, err)
	assert.Len(t, report.Incomes, 2)
	assert.Len(t, report.Sponsors, 1)
	assert.Len(t, report.Expenses, 1)

	report, err = svc.Report(ReportFilter{Search: "abc"})
	require.NoError(t, err)
	assert.Empty(t, report.Incomes)
	assert.Empty(t, report.Sponsors)
	assert.Empty(t, report.Expenses)
	assert.Equal(t, int64(0), report.TotalAmount)
}

func TestFinance_SponsorFilters(t *testing.T) {
	svc := NewFinanceService(setupTestDB(t))
	require.NoError(t, svc.SaveSponsor(&models.Sponsor{Name: "Early", StartDate: models.NewDate(2020, 1, 1), Amount: 10}))
	require.NoError(t, svc.SaveSponsor(&models.Sponsor{Name: "Late", StartDate: models.NewDate(2024, 1, 1), Amount: 20}))
	assert.ErrorIs(t, svc.SaveSponsor(&models.Sponsor{Name: "NoDate"}), ErrValidation)

	list, total, err := svc.ListSponsors(SponsorFilter{StartDate: DateRange{From: models.NewDate(2023, 1, 1)}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Late", list[0].Name)

	list, _, err = svc.ListSponsors(SponsorFilter{Search: "EAR"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Early", list[0].Name)

	_, err = svc.GetSponsor(999)
	assert.ErrorIs(t, err, ErrNotFound)
}
