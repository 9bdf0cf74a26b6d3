package api

import (
	"fmt"
	"strconv"
	"strings"

	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
)

// parseID 解析路径参数 id，失败时直接写 400
func parseID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id64), true
}

// firstQuery 按顺序取第一个非空的查询参数，兼容前端的多种命名
func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			return v
		}
	}
	return ""
}

// bindPage 读取 page、pageSize/page_size 与 query_all
func bindPage(c *gin.Context) service.Page {
	p := service.Page{}
	p.Page, _ = strconv.Atoi(c.Query("page"))
	p.PageSize, _ = strconv.Atoi(firstQuery(c, "pageSize", "page_size"))
	p.All = isTruthy(c.Query("query_all"))
	return p
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func queryUint(c *gin.Context, keys ...string) (*uint, error) {
	raw := firstQuery(c, keys...)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("参数 %s 必须为正整数", keys[0])
	}
	id := uint(v)
	return &id, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("参数 %s 必须为整数", key)
	}
	return &v, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("参数 %s 必须为 true 或 false", key)
	}
	return &v, nil
}

// queryDateRange 读取 <prefix>_after / <prefix>_before，格式 2006-01-02
func queryDateRange(c *gin.Context, prefix string) (service.DateRange, error) {
	var r service.DateRange
	if raw := strings.TrimSpace(c.Query(prefix + "_after")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return r, fmt.Errorf("%s_after 格式错误，应为: %s", prefix, models.DateLayout)
		}
		r.From = d
	}
	if raw := strings.TrimSpace(c.Query(prefix + "_before")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return r, fmt.Errorf("%s_before 格式错误，应为: %s", prefix, models.DateLayout)
		}
		r.To = d
	}
	return r, nil
}
