package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"genealogy/logger"
	"genealogy/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// readOnlyAPIs 只读接口，超级管理员也不可写
var readOnlyAPIs = []string{
	"/api/v1/unpaid-members",
}

// superuserAPIs 仅超级管理员可访问（含读取）
var superuserAPIs = map[string]bool{
	"GET /api/v1/accounts":     true,
	"GET /api/v1/accounts/:id": true,
}

// selfEditAPIs 成员可修改与本人账号关联的成员资料
var selfEditAPIs = map[string]bool{
	"PUT /api/v1/members/:id":   true,
	"PATCH /api/v1/members/:id": true,
}

// accountWriteAPIs 任意有效账号均可调用的写接口
var accountWriteAPIs = map[string]bool{
	"POST /api/v1/files": true,
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func abortForbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "权限不足"})
	c.Abort()
}

// Permission 接口权限校验，需在 JWTAuth 之后使用
// 超级管理员标记以数据库为准；普通账号只读，本人成员资料可改
func Permission(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := GetCurrentAccountID(c)
		var account models.Account
		if err := db.First(&account, accountID).Error; err != nil {
			abortUnauthorized(c, "账号不存在")
			return
		}
		if !account.IsActive {
			abortUnauthorized(c, "账号已停用")
			return
		}
		c.Set(ContextIsSuperuser, account.IsSuperuser)

		method := c.Request.Method
		path := normalizePath(c.Request.URL.Path)

		for _, p := range readOnlyAPIs {
			if matchPath(path, p) && !isSafeMethod(method) {
				abortForbidden(c)
				return
			}
		}
		if account.IsSuperuser {
			c.Next()
			return
		}
		if matchAPIPermission(method, path, superuserAPIs) {
			abortForbidden(c)
			return
		}
		if isSafeMethod(method) || matchAPIPermission(method, path, accountWriteAPIs) {
			c.Next()
			return
		}
		if matchAPIPermission(method, path, selfEditAPIs) {
			owned, err := ownsMember(db, account.ID, lastSegment(path))
			if err != nil {
				logger.Error().Err(err).Uint("account_id", account.ID).Str("path", path).Msg("查询成员归属失败")
				c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务器内部错误"})
				c.Abort()
				return
			}
			if owned {
				c.Next()
				return
			}
		}
		abortForbidden(c)
	}
}

// ownsMember 成员是否关联到指定账号
func ownsMember(db *gorm.DB, accountID uint, rawID string) (bool, error) {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return false, nil
	}
	var count int64
	if err := db.Model(&models.Member{}).Where("id = ? AND account_id = ?", id, accountID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// matchAPIPermission 检查 method+path 是否匹配任一允许的 pattern
// pattern 格式如 GET /api/v1/accounts/:id，支持 :param 占位符匹配单段
func matchAPIPermission(method, path string, allowed map[string]bool) bool {
	if allowed == nil {
		return false
	}
	path = normalizePath(path)
	for key := range allowed {
		parts := strings.SplitN(key, " ", 2)
		if len(parts) != 2 {
			continue
		}
		if parts[0] != method {
			continue
		}
		if matchPath(path, parts[1]) {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return p
}

// matchPath 检查实际路径是否匹配 pattern（支持 :id 等占位符）
// /api/v1/members/123 匹配 /api/v1/members/:id
func matchPath(actual, pattern string) bool {
	actual = normalizePath(actual)
	pattern = normalizePath(pattern)
	a := splitPath(actual)
	p := splitPath(pattern)
	if len(a) != len(p) {
		return false
	}
	for i := range a {
		if len(p[i]) > 0 && p[i][0] == ':' {
			if a[i] == "" {
				return false
			}
			continue
		}
		if a[i] != p[i] {
			return false
		}
	}
	return true
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

func lastSegment(path string) string {
	parts := splitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
