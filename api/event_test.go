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

func newEventRouter(db *gorm.DB, accountID uint, superuser bool) *gin.Engine {
	h := NewEventHandler(service.NewEventService(db))
	r := gin.New()
	r.Use(asAccount(accountID, superuser))
	r.GET("/events", h.List)
	r.GET("/events/:id", h.Get)
	r.POST("/events", h.Save)
	r.PUT("/events/:id", h.Save)
	r.DELETE("/events/:id", h.Delete)
	return r
}

func TestEventHandler_VisibilityByAttendance(t *testing.T) {
	db := setupTestDB(t)
	tree := service.NewFamilyTreeService(db)
	account := createAccount(t, db, "member", "secret123", "", false)
	stranger := createAccount(t, db, "stranger", "secret123", "", false)

	self := &models.Member{Name: "张三", Gender: "m", BirthDate: models.NewDate(1960, 1, 1), AccountID: &account.ID}
	require.NoError(t, tree.CreateMember(self))
	other := &models.Member{Name: "李四", Gender: "f", BirthDate: models.NewDate(1962, 1, 1)}
	require.NoError(t, tree.CreateMember(other))

	admin := newEventRouter(db, 99, true)
	create(t, admin, "/events", map[string]interface{}{
		"name": "清明祭祖", "location": "祠堂", "date": "2024-04-04", "attendees": []uint{self.ID, other.ID},
	})
	onlyOther := create(t, admin, "/events", map[string]interface{}{
		"name": "修谱会议", "location": "老宅", "date": "2024-06-01", "attendees": []uint{other.ID},
	})

	var page testPage[models.Event]
	decode(t, doJSON(admin, "GET", "/events", nil), &page)
	assert.Equal(t, int64(2), page.Count)

	decode(t, doJSON(newEventRouter(db, account.ID, false), "GET", "/events", nil), &page)
	require.Equal(t, int64(1), page.Count)
	assert.Equal(t, "清明祭祖", page.Results[0].Name)
	assert.Equal(t, []uint{self.ID, other.ID}, page.Results[0].AttendeeIDs)

	// 未关联成员的账号看不到任何活动
	decode(t, doJSON(newEventRouter(db, stranger.ID, false), "GET", "/events", nil), &page)
	assert.Equal(t, int64(0), page.Count)
	assert.Empty(t, page.Results)

	w := doJSON(admin, "PUT", "/events/"+itoa(onlyOther), map[string]interface{}{
		"name": "修谱会议", "location": "老宅", "date": "2024-06-01", "attendees": []uint{},
	})
	require.Equal(t, 200, w.Code, w.Body.String())
	var event models.Event
	decode(t, w, &event)
	assert.Empty(t, event.AttendeeIDs)
}

func TestEventHandler_Validation(t *testing.T) {
	db := setupTestDB(t)
	r := newEventRouter(db, 1, true)

	w := doJSON(r, "POST", "/events", map[string]interface{}{"name": "祭祖", "date": "2024-04-04"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少地点")

	w = doJSON(r, "POST", "/events", map[string]interface{}{
		"name": "祭祖", "location": "祠堂", "date": "2024-04-04", "attendees": []uint{42},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "出席成员不存在")

	assert.Equal(t, http.StatusNotFound, doJSON(r, "GET", "/events/5", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, "DELETE", "/events/5", nil).Code)
}
