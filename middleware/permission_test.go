package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"genealogy/database"
	"genealogy/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMatchPath(t *testing.T) {
	tests := []struct {
		actual   string
		pattern  string
		expected bool
	}{
		{"/api/v1/members", "/api/v1/members", true},
		{"/api/v1/members/123", "/api/v1/members", false},
		{"/api/v1/members/123", "/api/v1/members/:id", true},
		{"/api/v1/members/abc", "/api/v1/members/:id", true},
		{"/api/v1/members/", "/api/v1/members/:id", false},
		{"/api/v1/members", "/api/v1/members/:id", false},
		{"/api/v1/unpaid-members", "/api/v1/unpaid-members", true},
		{"/api/v1/wrong", "/api/v1/members", false},
		{"/api/v1/members/statistics", "/api/v1/members/:id", true},
	}
	for _, tt := range tests {
		got := matchPath(tt.actual, tt.pattern)
		assert.Equalf(t, tt.expected, got, "matchPath(%q, %q)", tt.actual, tt.pattern)
	}
}

func TestMatchAPIPermission(t *testing.T) {
	assert.True(t, matchAPIPermission("PUT", "/api/v1/members/3", selfEditAPIs))
	assert.False(t, matchAPIPermission("DELETE", "/api/v1/members/3", selfEditAPIs))
	assert.False(t, matchAPIPermission("GET", "/x", nil))
}

func setupPermissionDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestPermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupPermissionDB(t)

	admin := models.Account{Username: "admin", Password: "x", IsActive: true, IsSuperuser: true}
	member := models.Account{Username: "member", Password: "x", IsActive: true}
	disabled := models.Account{Username: "disabled", Password: "x", IsActive: true}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&member).Error)
	require.NoError(t, db.Create(&disabled).Error)
	require.NoError(t, db.Model(&disabled).Update("is_active", false).Error)

	own := models.Member{ID: 1, Name: "本人", Gender: "male", BirthDate: models.NewDate(1990, 1, 1), AccountID: &member.ID}
	other := models.Member{ID: 2, Name: "他人", Gender: "male", BirthDate: models.NewDate(1990, 1, 1)}
	require.NoError(t, db.Omit("Account", "Mother", "Father").Create(&own).Error)
	require.NoError(t, db.Omit("Account", "Mother", "Father").Create(&other).Error)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if v := c.GetHeader("X-Account"); v != "" {
			switch v {
			case "admin":
				c.Set(ContextAccountID, admin.ID)
			case "member":
				c.Set(ContextAccountID, member.ID)
			case "disabled":
				c.Set(ContextAccountID, disabled.ID)
			}
		}
		c.Next()
	})
	router.Use(Permission(db))
	ok := func(c *gin.Context) { c.String(200, "ok") }
	router.Any("/api/v1/members", ok)
	router.Any("/api/v1/members/:id", ok)
	router.Any("/api/v1/unpaid-members", ok)
	router.Any("/api/v1/accounts", ok)
	router.Any("/api/v1/files", ok)

	tests := []struct {
		name    string
		account string
		method  string
		path    string
		want    int
	}{
		{"admin writes", "admin", "DELETE", "/api/v1/members/2", 200},
		{"admin reads accounts", "admin", "GET", "/api/v1/accounts", 200},
		{"admin cannot write read-only", "admin", "POST", "/api/v1/unpaid-members", 403},
		{"member reads", "member", "GET", "/api/v1/members", 200},
		{"member reads unpaid", "member", "GET", "/api/v1/unpaid-members", 200},
		{"member edits self", "member", "PUT", "/api/v1/members/1", 200},
		{"member patches self", "member", "PATCH", "/api/v1/members/1", 200},
		{"member edits other", "member", "PUT", "/api/v1/members/2", 403},
		{"member deletes self", "member", "DELETE", "/api/v1/members/1", 403},
		{"member creates", "member", "POST", "/api/v1/members", 403},
		{"member lists accounts", "member", "GET", "/api/v1/accounts", 403},
		{"member uploads file", "member", "POST", "/api/v1/files", 200},
		{"disabled account", "disabled", "GET", "/api/v1/members", 401},
		{"unknown account", "", "GET", "/api/v1/members", 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.account != "" {
				req.Header.Set("X-Account", tt.account)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "权限不足")
			}
		})
	}
}

func TestPermission_OwnershipLookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupPermissionDB(t)

	member := models.Account{Username: "member", Password: "x", IsActive: true}
	require.NoError(t, db.Create(&member).Error)
	require.NoError(t, db.Migrator().DropTable(&models.Member{}))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextAccountID, member.ID)
		c.Next()
	})
	router.Use(Permission(db))
	router.PATCH("/api/v1/members/:id", func(c *gin.Context) { c.String(200, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PATCH", "/api/v1/members/1", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "权限不足")
}
