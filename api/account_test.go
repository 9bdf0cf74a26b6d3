package api

import (
	"net/http"
	"testing"

	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAccountRouter(db *gorm.DB, currentID uint) *gin.Engine {
	h := NewAccountHandler(service.NewAccountService(db, nil))
	r := gin.New()
	r.Use(asAccount(currentID, true))
	r.GET("/accounts", h.List)
	r.GET("/accounts/:id", h.Get)
	r.POST("/accounts", h.Create)
	r.PUT("/accounts/:id", h.Update)
	r.DELETE("/accounts/:id", h.Delete)
	return r
}

func TestAccountHandler_Create(t *testing.T) {
	db := setupTestDB(t)
	r := newAccountRouter(db, 1)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"ok", map[string]interface{}{"username": "zhangsan", "password": "secret123", "email": "zs@example.com"}, http.StatusCreated},
		{"duplicate", map[string]interface{}{"username": "zhangsan", "password": "secret123"}, http.StatusBadRequest},
		{"too short", map[string]interface{}{"username": "lisi", "password": "abc12"}, http.StatusBadRequest},
		{"all digits", map[string]interface{}{"username": "lisi", "password": "1234567890"}, http.StatusBadRequest},
		{"bad email", map[string]interface{}{"username": "lisi", "password": "secret123", "email": "nope"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "POST", "/accounts", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := doJSON(r, "GET", "/accounts?search=zhang", nil)
	var page testPage[models.Account]
	decode(t, w, &page)
	require.Equal(t, int64(1), page.Count)
	assert.NotContains(t, w.Body.String(), "secret123")
}

func TestAccountHandler_ProtectsCurrentAccount(t *testing.T) {
	db := setupTestDB(t)
	admin := createAccount(t, db, "admin", "secret123", "", true)
	member := createAccount(t, db, "member", "secret123", "", false)
	r := newAccountRouter(db, admin.ID)

	w := doJSON(r, "PUT", "/accounts/"+itoa(admin.ID), map[string]interface{}{"is_superuser": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, "PUT", "/accounts/"+itoa(admin.ID), map[string]interface{}{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, "DELETE", "/accounts/"+itoa(admin.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "PUT", "/accounts/"+itoa(member.ID), map[string]interface{}{"is_active": false, "email": "m@example.com"})
	require.Equal(t, 200, w.Code, w.Body.String())
	var updated models.Account
	decode(t, w, &updated)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "m@example.com", updated.Email)

	w = doJSON(r, "PUT", "/accounts/"+itoa(member.ID), map[string]interface{}{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_DeleteUnlinksMember(t *testing.T) {
	db := setupTestDB(t)
	admin := createAccount(t, db, "admin", "secret123", "", true)
	member := createAccount(t, db, "member", "secret123", "", false)
	tree := service.NewFamilyTreeService(db)
	m := &models.Member{Name: "张三", Gender: "m", BirthDate: models.NewDate(1960, 1, 1), AccountID: &member.ID}
	require.NoError(t, tree.CreateMember(m))

	r := newAccountRouter(db, admin.ID)
	w := doJSON(r, "DELETE", "/accounts/"+itoa(member.ID), nil)
	require.Equal(t, 200, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, doJSON(r, "GET", "/accounts/"+itoa(member.ID), nil).Code)

	got, err := tree.GetMember(m.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AccountID)
}
