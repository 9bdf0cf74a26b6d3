package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"genealogy/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWTTestConfig() {
	InitJWT(&config.Config{
		JWT: config.JWTConfig{Secret: "test-jwt-secret-key"},
	})
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()

	token, claims, err := GenerateToken(1, "testuser", true, TokenTypeAccess, 24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, len(token), 20)
	assert.NotEmpty(t, claims.ID)

	parsed, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), parsed.AccountID)
	assert.Equal(t, "testuser", parsed.Username)
	assert.True(t, parsed.IsSuperuser)
	assert.Equal(t, TokenTypeAccess, parsed.TokenType)
	assert.Equal(t, claims.ID, parsed.ID)

	_, other, err := GenerateToken(1, "testuser", true, TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, other.ID)
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()

	_, err := ParseToken("")
	assert.Error(t, err)
	_, err = ParseToken("not.a.valid.jwt")
	assert.Error(t, err)
	_, err = ParseToken("eyJhbGciOiJmb29iIn0.xxxx.yyyy")
	assert.Error(t, err)

	expired, _, err := GenerateToken(1, "u", false, TokenTypeAccess, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	// 换密钥后旧 token 失效
	token, _, err := GenerateToken(1, "u", false, TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	InitJWT(&config.Config{JWT: config.JWTConfig{Secret: "another-secret"}})
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	initJWTTestConfig()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "id:%d super:%v", GetCurrentAccountID(c), IsSuperuser(c))
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "401")

	assert.Equal(t, http.StatusUnauthorized, do("Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer ").Code)

	refresh, _, _ := GenerateToken(42, "user42", false, TokenTypeRefresh, time.Hour)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+refresh).Code)

	access, _, _ := GenerateToken(42, "user42", true, TokenTypeAccess, time.Hour)
	w = do("Bearer " + access)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:42 super:true", w.Body.String())
}

func TestGetCurrentAccountID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentAccountID(c))
	assert.False(t, IsSuperuser(c))

	c.Set(ContextAccountID, uint(99))
	c.Set(ContextIsSuperuser, true)
	assert.Equal(t, uint(99), GetCurrentAccountID(c))
	assert.True(t, IsSuperuser(c))
}
