package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"genealogy/api"
	"genealogy/config"
	"genealogy/database"
	"genealogy/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	if err := api.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func setupRouter(t *testing.T) *gin.Engine {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		JWT: config.JWTConfig{
			Secret:            "router-test",
			ExpireTime:        time.Hour,
			RefreshExpireTime: 24 * time.Hour,
		},
		Upload:    config.UploadConfig{Dir: t.TempDir(), MaxSizeMB: 1},
		RateLimit: config.RateLimitConfig{LoginMaxAttempts: 10, LoginWindowSec: 60},
		Superuser: config.SuperuserConfig{Username: "admin", Password: "secret123"},
	}
	require.NoError(t, database.Seed(db, &cfg.Superuser))
	middleware.InitJWT(cfg)
	return SetupRouter(cfg, db)
}

func call(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, r http.Handler, username, password string) string {
	w := call(r, "POST", "/api/v1/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, 200, w.Code, w.Body.String())
	var resp struct {
		Data struct {
			Access string `json:"access"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Access
}

func dataID(t *testing.T, w *httptest.ResponseRecorder) float64 {
	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data["id"].(float64)
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	w := call(r, "GET", "/health", "", nil)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	r := setupRouter(t)
	for _, path := range []string{"/api/v1/members", "/api/v1/incomes", "/api/v1/report", "/api/v1/auth/profile"} {
		assert.Equal(t, http.StatusUnauthorized, call(r, "GET", path, "", nil).Code, path)
	}
}

func TestRoutes_SuperuserAndMember(t *testing.T) {
	r := setupRouter(t)
	admin := loginToken(t, r, "admin", "secret123")

	w := call(r, "POST", "/api/v1/accounts", admin, map[string]interface{}{"username": "zhangsan", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	accountID := dataID(t, w)

	w = call(r, "POST", "/api/v1/members", admin, map[string]interface{}{
		"name": "张三", "gender": "m", "birth_date": "1960-05-01", "account_id": accountID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	self := dataID(t, w)
	w = call(r, "POST", "/api/v1/members", admin, map[string]interface{}{
		"name": "李四", "gender": "f", "birth_date": "1962-05-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	other := dataID(t, w)

	member := loginToken(t, r, "zhangsan", "secret123")
	assert.Equal(t, 200, call(r, "GET", "/api/v1/members", member, nil).Code)
	assert.Equal(t, 200, call(r, "GET", "/api/v1/auth/profile", member, nil).Code)

	selfPath := "/api/v1/members/" + jsonNumber(self)
	assert.Equal(t, 200, call(r, "PATCH", selfPath, member, map[string]string{"address": "老宅"}).Code)
	assert.Equal(t, http.StatusForbidden,
		call(r, "PATCH", "/api/v1/members/"+jsonNumber(other), member, map[string]string{"address": "老宅"}).Code)
	assert.Equal(t, http.StatusForbidden, call(r, "DELETE", selfPath, member, nil).Code)
	assert.Equal(t, http.StatusForbidden,
		call(r, "POST", "/api/v1/expenses", member, map[string]interface{}{"amount": 1, "date": "2024-01-01"}).Code)
	assert.Equal(t, http.StatusForbidden, call(r, "GET", "/api/v1/accounts", member, nil).Code)
	assert.Equal(t, 200, call(r, "GET", "/api/v1/accounts", admin, nil).Code)

	assert.Equal(t, 200,
		call(r, "PUT", "/api/v1/auth/password", member, map[string]string{"old_password": "secret123", "new_password": "newsecret1"}).Code)
	loginToken(t, r, "zhangsan", "newsecret1")
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}

func TestSwagger_DocumentsEveryRoute(t *testing.T) {
	r := setupRouter(t)
	w := call(r, "GET", "/swagger/doc.json", "", nil)
	require.Equal(t, 200, w.Code)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))

	for _, route := range r.Routes() {
		if !strings.HasPrefix(route.Path, "/api/v1/") {
			continue
		}
		path := strings.ReplaceAll(route.Path, ":id", "{id}")
		_, ok := doc.Paths[path][strings.ToLower(route.Method)]
		assert.Truef(t, ok, "%s %s 缺少接口文档", route.Method, path)
	}
}
