package api

import (
	"net/http"
	"net/url"
	"testing"

	"genealogy/models"
	"genealogy/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newMemberRouter(db *gorm.DB, accountID uint, superuser bool) *gin.Engine {
	h := NewMemberHandler(service.NewFamilyTreeService(db), service.NewExportService())
	r := gin.New()
	r.Use(asAccount(accountID, superuser))
	r.GET("/members", h.List)
	r.GET("/members/statistics", h.Statistics)
	r.GET("/members/export", h.Export)
	r.GET("/members/:id", h.Get)
	r.POST("/members", h.Create)
	r.PUT("/members/:id", h.Update)
	r.PATCH("/members/:id", h.Update)
	r.DELETE("/members/:id", h.Delete)
	r.GET("/unpaid-members", h.Unpaid)
	return r
}

func postMember(t *testing.T, r *gin.Engine, body map[string]interface{}) models.Member {
	w := doJSON(r, "POST", "/members", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m models.Member
	decode(t, w, &m)
	return m
}

func TestMemberHandler_CreateComputesGeneration(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)

	father := postMember(t, r, map[string]interface{}{"name": "张父", "gender": "m", "birth_date": "1930-01-01"})
	mother := postMember(t, r, map[string]interface{}{"name": "李母", "gender": "f", "birth_date": "1932-01-01", "pids": []uint{father.ID}})
	assert.Equal(t, 1, father.Generation)
	assert.Equal(t, []uint{father.ID}, mother.PartnerIDs)

	child := postMember(t, r, map[string]interface{}{
		"name": "张三", "gender": "m", "birth_date": "1960-05-01",
		"mid": mother.ID, "fid": father.ID,
	})
	assert.Equal(t, 2, child.Generation)
	assert.Equal(t, mother.ID, *child.MotherID)
	assert.Equal(t, father.ID, *child.FatherID)
	assert.Equal(t, uint(3), child.ID)
	assert.Equal(t, models.EducationNone, child.Education)
}

func TestMemberHandler_CreateValidation(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"gender": "m", "birth_date": "1960-01-01"}},
		{"missing birth date", map[string]interface{}{"name": "x", "gender": "m"}},
		{"bad date", map[string]interface{}{"name": "x", "gender": "m", "birth_date": "1960/01/01"}},
		{"dangling mother", map[string]interface{}{"name": "x", "gender": "m", "birth_date": "1960-01-01", "mother_id": 99}},
		{"bad phone", map[string]interface{}{"name": "x", "gender": "m", "birth_date": "1960-01-01", "phone": "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(r, "POST", "/members", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestMemberHandler_UpdateClearsWithNull(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)

	father := postMember(t, r, map[string]interface{}{"name": "张父", "gender": "m", "birth_date": "1930-01-01"})
	child := postMember(t, r, map[string]interface{}{
		"name": "张三", "gender": "m", "birth_date": "1960-05-01", "father_id": father.ID, "address": "老宅",
	})
	require.Equal(t, 2, child.Generation)

	// 只改地址，其余保持不变
	w := doJSON(r, "PATCH", "/members/"+itoa(child.ID), map[string]interface{}{"address": "新居"})
	require.Equal(t, 200, w.Code, w.Body.String())
	var updated models.Member
	decode(t, w, &updated)
	assert.Equal(t, "新居", *updated.Address)
	assert.Equal(t, father.ID, *updated.FatherID)
	assert.Equal(t, "张三", updated.Name)

	// 显式 null 清空父亲，代数回到默认规则
	w = doJSON(r, "PUT", "/members/"+itoa(child.ID), `{"father_id":null}`)
	require.Equal(t, 200, w.Code, w.Body.String())
	decode(t, w, &updated)
	assert.Nil(t, updated.FatherID)
	assert.Equal(t, 1, updated.Generation)

	w = doJSON(r, "PUT", "/members/999", map[string]interface{}{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMemberHandler_OnlySuperuserChangesAccount(t *testing.T) {
	db := setupTestDB(t)
	account := createAccount(t, db, "member", "secret123", "", false)
	other := createAccount(t, db, "other", "secret123", "", false)

	admin := newMemberRouter(db, 99, true)
	self := postMember(t, admin, map[string]interface{}{
		"name": "张三", "gender": "m", "birth_date": "1960-05-01", "account_id": account.ID,
	})

	r := newMemberRouter(db, account.ID, false)
	w := doJSON(r, "PATCH", "/members/"+itoa(self.ID), map[string]interface{}{"account_id": other.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 原值回传允许
	w = doJSON(r, "PATCH", "/members/"+itoa(self.ID), map[string]interface{}{"account_id": account.ID, "achievement": "修谱"})
	assert.Equal(t, 200, w.Code, w.Body.String())

	w = doJSON(admin, "PATCH", "/members/"+itoa(self.ID), map[string]interface{}{"account_id": other.ID})
	assert.Equal(t, 200, w.Code, w.Body.String())
}

func TestMemberHandler_DeleteReferencedParent(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)

	father := postMember(t, r, map[string]interface{}{"name": "张父", "gender": "m", "birth_date": "1930-01-01"})
	child := postMember(t, r, map[string]interface{}{"name": "张三", "gender": "m", "birth_date": "1960-05-01", "fid": father.ID})

	w := doJSON(r, "DELETE", "/members/"+itoa(father.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, "DELETE", "/members/"+itoa(child.ID), nil)
	assert.Equal(t, 200, w.Code)
	w = doJSON(r, "DELETE", "/members/"+itoa(father.ID), nil)
	assert.Equal(t, 200, w.Code)
	w = doJSON(r, "GET", "/members/"+itoa(father.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMemberHandler_ListAndStatistics(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)

	a := postMember(t, r, map[string]interface{}{"name": "张甲", "gender": "f", "birth_date": "1930-01-01"})
	postMember(t, r, map[string]interface{}{"name": "张乙", "gender": "m", "birth_date": "1931-01-01"})
	postMember(t, r, map[string]interface{}{"name": "王丙", "gender": "f", "birth_date": "1960-01-01", "mid": a.ID})

	w := doJSON(r, "GET", "/members?pageSize=2", nil)
	var page testPage[models.Member]
	decode(t, w, &page)
	assert.Equal(t, int64(3), page.Count)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Len(t, page.Results, 2)

	w = doJSON(r, "GET", "/members?query_all=true&gender=f", nil)
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Count)
	assert.Len(t, page.Results, 2)

	w = doJSON(r, "GET", "/members?mid="+itoa(a.ID), nil)
	decode(t, w, &page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "王丙", page.Results[0].Name)

	w = doJSON(r, "GET", "/members?search="+url.QueryEscape("张")+"&ordering=-id", nil)
	decode(t, w, &page)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "张乙", page.Results[0].Name)

	w = doJSON(r, "GET", "/members?generation=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "GET", "/members/statistics", nil)
	require.Equal(t, 200, w.Code)
	var stats service.Statistics
	decode(t, w, &stats)
	assert.Equal(t, []service.GenerationCount{{Generation: 1, MemberCount: 2}, {Generation: 2, MemberCount: 1}}, stats.Generations)
	assert.Equal(t, []service.GenderCount{{Gender: "f", MemberCount: 2}, {Gender: "m", MemberCount: 1}}, stats.Genders)
}

func TestMemberHandler_Unpaid(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)
	finance := service.NewFinanceService(db)

	paid := postMember(t, r, map[string]interface{}{"name": "张甲", "gender": "m", "birth_date": "1930-01-01"})
	postMember(t, r, map[string]interface{}{"name": "张乙", "gender": "m", "birth_date": "1931-01-01"})
	level := models.ContributionLevel{Year: 2024, Amount: 200}
	require.NoError(t, finance.SaveLevel(&level))
	require.NoError(t, finance.SaveIncome(&models.Income{
		Date: models.NewDate(2024, 3, 1), ContributionLevelID: &level.ID, MemberID: &paid.ID,
	}))

	w := doJSON(r, "GET", "/unpaid-members", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "GET", "/unpaid-members?contribution_level_year=2024", nil)
	require.Equal(t, 200, w.Code)
	var page testPage[models.Member]
	decode(t, w, &page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "张乙", page.Results[0].Name)

	w = doJSON(r, "GET", "/unpaid-members?contribution_level_year=2025", nil)
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Count)
}

func TestMemberHandler_Export(t *testing.T) {
	db := setupTestDB(t)
	r := newMemberRouter(db, 1, true)
	postMember(t, r, map[string]interface{}{"name": "张甲", "gender": "m", "birth_date": "1930-01-01"})

	w := doJSON(r, "GET", "/members/export", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("成员")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Contains(t, rows[1], "张甲")
}
