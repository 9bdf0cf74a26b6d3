package service

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page 分页参数，All 为 true 时返回全部记录
type Page struct {
	Page     int
	PageSize int
	All      bool
}

// Normalize 补全默认页码与每页条数
func (p *Page) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
}

// paginate 统计总数并按页查询，排序与预加载在统计之后追加
func paginate[T any](query *gorm.DB, p *Page, order string, preloads ...string) ([]T, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	list := make([]T, 0)
	query = query.Order(order)
	for _, name := range preloads {
		query = query.Preload(name)
	}
	if !p.All {
		p.Normalize()
		query = query.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
	}
	if err := query.Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// orderClause 将 "-name" 形式的排序参数转换为 SQL，仅允许白名单字段
func orderClause(ordering string, allowed map[string]bool, fallback string) string {
	ordering = strings.TrimSpace(ordering)
	if ordering == "" {
		return fallback
	}
	desc := strings.HasPrefix(ordering, "-")
	field := strings.TrimPrefix(ordering, "-")
	if !allowed[field] {
		return fallback
	}
	if desc {
		return field + " DESC"
	}
	return field + " ASC"
}

// likePattern 构造不区分大小写的模糊匹配参数
func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
