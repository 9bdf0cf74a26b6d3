package service

import (
	"bytes"
	"fmt"

	"genealogy/models"

	"github.com/6tail/lunar-go/calendar"
	"github.com/xuri/excelize/v2"
)

// ExportService 导出 Excel
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
}

type sheetStyles struct {
	header, data, summary int
}

func newSheetStyles(f *excelize.File) (*sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"7C2D12"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return nil, err
	}
	data, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return nil, err
	}
	summary, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return nil, err
	}
	return &sheetStyles{header: header, data: data, summary: summary}, nil
}

// writeTable 写入表头与数据行，返回下一个空行号
func writeTable(f *excelize.File, sheet string, styles *sheetStyles, headers []string, rows [][]interface{}) (int, error) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return 0, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return 0, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return 0, err
	}

	for r, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return 0, err
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, r+2)
		end, _ := excelize.CoordinatesToCellName(len(headers), r+2)
		if err := f.SetCellStyle(sheet, first, end, styles.data); err != nil {
			return 0, err
		}
	}
	return len(rows) + 2, nil
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MembersXLSX 导出成员名册
func (s *ExportService) MembersXLSX(members []models.Member) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "成员"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	headers := []string{"ID", "姓名", "性别", "代数", "出生日期", "去世日期", "父亲ID", "母亲ID", "配偶ID", "学历", "电话", "地址", "农历生日"}
	rows := make([][]interface{}, 0, len(members))
	for _, m := range members {
		death := ""
		if m.DeathDate != nil && !m.DeathDate.IsZero() {
			death = m.DeathDate.String()
		}
		rows = append(rows, []interface{}{
			m.ID, m.Name, m.Gender, m.Generation, m.BirthDate.String(), death,
			idOrEmpty(m.FatherID), idOrEmpty(m.MotherID), joinIDs(m.PartnerIDs),
			m.Education, optional(m.Phone), optional(m.Address), lunarDate(m.BirthDate),
		})
	}
	if _, err := writeTable(f, sheet, styles, headers, rows); err != nil {
		return nil, err
	}
	return f.WriteToBuffer()
}

// ReportXLSX 导出收支报表，收入、赞助、支出各一个工作表，附汇总表
func (s *ExportService) ReportXLSX(report *Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	summary := "汇总"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	summaryRows := [][]interface{}{
		{"会费收入", report.TotalIncomes},
		{"赞助收入", report.TotalSponsors},
		{"支出", report.TotalExpenses},
	}
	next, err := writeTable(f, summary, styles, []string{"项目", "金额"}, summaryRows)
	if err != nil {
		return nil, err
	}
	a, _ := excelize.CoordinatesToCellName(1, next)
	b, _ := excelize.CoordinatesToCellName(2, next)
	f.SetCellValue(summary, a, "结余")
	f.SetCellValue(summary, b, report.TotalAmount)
	if err := f.SetCellStyle(summary, a, b, styles.summary); err != nil {
		return nil, err
	}

	incomeRows := make([][]interface{}, 0, len(report.Incomes))
	for _, in := range report.Incomes {
		var year interface{}
		var amount int64
		if in.ContributionLevel != nil {
			year = in.ContributionLevel.Year
			amount = in.ContributionLevel.Amount
		}
		member := ""
		if in.Member != nil {
			member = in.Member.Name
		}
		incomeRows = append(incomeRows, []interface{}{in.ID, in.Date.String(), year, member, amount})
	}
	if err := addSheet(f, "会费收入", styles, []string{"ID", "日期", "年度", "成员", "金额"}, incomeRows); err != nil {
		return nil, err
	}

	sponsorRows := make([][]interface{}, 0, len(report.Sponsors))
	for _, sp := range report.Sponsors {
		sponsorRows = append(sponsorRows, []interface{}{sp.ID, sp.StartDate.String(), sp.Name, sp.Phone, sp.Amount})
	}
	if err := addSheet(f, "赞助", styles, []string{"ID", "日期", "赞助人", "电话", "金额"}, sponsorRows); err != nil {
		return nil, err
	}

	expenseRows := make([][]interface{}, 0, len(report.Expenses))
	for _, e := range report.Expenses {
		category := ""
		if e.Category != nil {
			category = e.Category.Name
		}
		expenseRows = append(expenseRows, []interface{}{e.ID, e.Date.String(), category, e.Amount})
	}
	if err := addSheet(f, "支出", styles, []string{"ID", "日期", "类别", "金额"}, expenseRows); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}

func addSheet(f *excelize.File, name string, styles *sheetStyles, headers []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	_, err := writeTable(f, name, styles, headers, rows)
	return err
}

// lunarDate 公历日期转农历，如 一九八〇年三月廿一
func lunarDate(d models.Date) string {
	if d.IsZero() {
		return ""
	}
	return calendar.NewSolarFromDate(d.Time).GetLunar().String()
}

func idOrEmpty(id *uint) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%d", *id)
}

func joinIDs(ids []uint) string {
	var buf bytes.Buffer
	for i, id := range ids {
		if i > 0 {
			buf.WriteString(",")
		}
		fmt.Fprintf(&buf, "%d", id)
	}
	return buf.String()
}
