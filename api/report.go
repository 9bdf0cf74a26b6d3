package api

import (
	"fmt"
	"time"

	"genealogy/service"

	"github.com/gin-gonic/gin"
)

func bindReportFilter(c *gin.Context) (service.ReportFilter, error) {
	dates, err := queryDateRange(c, "date")
	if err != nil {
		return service.ReportFilter{}, err
	}
	return service.ReportFilter{
		Type:   firstQuery(c, "type"),
		Date:   dates,
		Search: firstQuery(c, "search"),
	}, nil
}

// Report 收支报表
// @Summary 收支报表
// @Description 结余 = 会费收入 + 赞助 - 支出；search 按金额片段匹配
// @Tags 财务-报表
// @Produce json
// @Security BearerAuth
// @Param type query string false "income / expense / all，默认 all"
// @Param date_after query string false "日期起 (2006-01-02)"
// @Param date_before query string false "日期止 (2006-01-02)"
// @Param search query string false "金额片段"
// @Success 200 {object} Response{data=service.Report}
// @Failure 400 {object} Response
// @Router /api/v1/report [get]
func (h *FinanceHandler) Report(c *gin.Context) {
	f, err := bindReportFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	report, err := h.finance.Report(f)
	if err != nil {
		handleError(c, err, "生成报表失败")
		return
	}
	Success(c, report)
}

// ExportReport 导出收支报表 Excel
// @Summary 导出收支报表
// @Tags 财务-报表
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param type query string false "income / expense / all"
// @Param date_after query string false "日期起"
// @Param date_before query string false "日期止"
// @Success 200 {file} file "Excel 文件"
// @Router /api/v1/report/export [get]
func (h *FinanceHandler) ExportReport(c *gin.Context) {
	f, err := bindReportFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	report, err := h.finance.Report(f)
	if err != nil {
		handleError(c, err, "生成报表失败")
		return
	}
	buf, err := h.export.ReportXLSX(report)
	if err != nil {
		handleError(c, err, "生成 Excel 失败")
		return
	}
	sendXLSX(c, fmt.Sprintf("收支报表_%s.xlsx", time.Now().Format("20060102")), buf)
}
