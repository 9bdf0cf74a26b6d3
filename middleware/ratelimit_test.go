package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func doFromIP(router *gin.Engine, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 短窗口 200ms，最多 2 次
	router := gin.New()
	router.Use(LoginRateLimit(2, 200*time.Millisecond))
	router.POST("/login", func(c *gin.Context) {
		c.String(200, "ok")
	})

	w1 := doFromIP(router, "POST", "/login", "192.168.1.1")
	w2 := doFromIP(router, "POST", "/login", "192.168.1.1")
	w3 := doFromIP(router, "POST", "/login", "192.168.1.1")

	assert.Equal(t, 200, w1.Code)
	assert.Equal(t, 200, w2.Code)
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Contains(t, w3.Body.String(), "频繁")

	// 不同 IP 互不影响
	assert.Equal(t, 200, doFromIP(router, "POST", "/login", "192.168.1.2").Code)

	// 窗口过后恢复
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 200, doFromIP(router, "POST", "/login", "192.168.1.1").Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(1, 2))
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	assert.Equal(t, 200, doFromIP(router, "GET", "/ping", "10.0.0.1").Code)
	assert.Equal(t, 200, doFromIP(router, "GET", "/ping", "10.0.0.1").Code)
	w := doFromIP(router, "GET", "/ping", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "429")

	assert.Equal(t, 200, doFromIP(router, "GET", "/ping", "10.0.0.2").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(0, 0))
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, doFromIP(router, "GET", "/ping", "10.0.0.3").Code)
	}
}
