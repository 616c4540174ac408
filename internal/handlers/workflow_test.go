package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"xunwu/internal/db"
	"xunwu/internal/middleware"
	"xunwu/internal/models"
	"xunwu/internal/realtime"
	"xunwu/internal/router"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDBSeq++
	dsn := fmt.Sprintf("file:handlerdb%d?mode=memory&cache=shared", testDBSeq)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	gdb.Exec("PRAGMA busy_timeout = 5000")
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db.DB = gdb
	t.Cleanup(func() {
		// 不把 db.DB 置回 nil：测试中触发的异步积分 goroutine 可能
		// 在清理之后才运行，置 nil 会导致空指针 panic；关闭连接即可。
		sqlDB.Close()
	})

	r := gin.New()
	r.Use(sessions.Sessions("xunwu_session", cookie.NewStore([]byte("test_secret"))))
	r.Use(middleware.LoadUser())
	router.RegisterRoutes(r, realtime.NewHub(), realtime.NopPublisher{})
	return r
}

// sessionClient 模拟一个带登录态的浏览器
type sessionClient struct {
	t      *testing.T
	router *gin.Engine
	cookie string
}

func (c *sessionClient) do(method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	if set := w.Header().Get("Set-Cookie"); set != "" {
		// 只要 name=value 部分，丢掉 Path/Expires 等属性
		if i := strings.IndexByte(set, ';'); i >= 0 {
			set = set[:i]
		}
		c.cookie = set
	}

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			c.t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return w, resp
}

func (c *sessionClient) mustDo(method, path string, body interface{}) map[string]interface{} {
	c.t.Helper()
	w, resp := c.do(method, path, body)
	if w.Code != http.StatusOK {
		c.t.Fatalf("%s %s = %d, body %s", method, path, w.Code, w.Body.String())
	}
	return resp
}

func signup(t *testing.T, r *gin.Engine, email, phone string) *sessionClient {
	t.Helper()
	c := &sessionClient{t: t, router: r}
	c.mustDo("POST", "/api/auth/signup", gin.H{
		"email":    email,
		"password": "password123",
		"phone":    phone,
	})
	return c
}

// 走一遍完整的失物招领流程：
// 拾到者发布招领 -> 失主发起会话 -> 互发消息 -> 双方交换联系方式
// -> 发布者确认归还 -> 物品转为已归还、对方拿到归还积分
func TestLostAndFoundWorkflow(t *testing.T) {
	r := newTestRouter(t)

	poster := signup(t, r, "poster@test.edu", "13800000001")
	seeker := signup(t, r, "seeker@test.edu", "13800000002")

	// 发布招领信息
	resp := poster.mustDo("POST", "/api/items", gin.H{
		"type":          "found",
		"title":         "图书馆捡到一张校园卡",
		"description":   "三楼自习区捡到，卡号尾号 1234",
		"category":      "证件",
		"location_area": "图书馆",
	})
	itemID := uint(resp["item"].(map[string]interface{})["id"].(float64))

	// 未登录用户能看列表但不能发起会话
	anon := &sessionClient{t: t, router: r}
	if w, _ := anon.do("GET", "/api/items", nil); w.Code != http.StatusOK {
		t.Fatalf("anonymous list = %d", w.Code)
	}
	if w, _ := anon.do("POST", "/api/chats/initiate", gin.H{"item_id": itemID}); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous initiate = %d, want 401", w.Code)
	}

	// 失主发起会话
	resp = seeker.mustDo("POST", "/api/chats/initiate", gin.H{"item_id": itemID})
	cid := resp["chat"].(map[string]interface{})["cid"].(string)
	if resp["created"] != true {
		t.Fatal("first initiate should create the chat")
	}

	// 重复发起复用同一个会话
	resp = seeker.mustDo("POST", "/api/chats/initiate", gin.H{"item_id": itemID})
	if resp["created"] != false || resp["chat"].(map[string]interface{})["cid"].(string) != cid {
		t.Fatal("second initiate should reuse the chat")
	}

	// 互发消息
	seeker.mustDo("POST", "/api/chats/"+cid+"/messages", gin.H{"content": "你好，这张卡应该是我的"})
	poster.mustDo("POST", "/api/chats/"+cid+"/messages", gin.H{"content": "可以说一下卡号尾号吗"})

	// 违禁词被拦截
	if w, _ := seeker.do("POST", "/api/chats/"+cid+"/messages", gin.H{"content": "fuck off"}); w.Code != http.StatusBadRequest {
		t.Fatalf("profanity message = %d, want 400", w.Code)
	}

	// 双方未交换联系方式前不能确认归还
	if w, resp := poster.do("PUT", "/api/chats/"+cid+"/resolve", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("premature resolve = %d (%v), want 400", w.Code, resp)
	}
	check := poster.mustDo("GET", "/api/chats/"+cid+"/can-resolve", nil)
	if check["can_resolve"] != false {
		t.Fatal("canResolve should be false before phones are shared")
	}

	// 双方交换联系方式
	poster.mustDo("POST", "/api/chats/"+cid+"/share-phone", nil)
	seeker.mustDo("POST", "/api/chats/"+cid+"/share-phone", nil)

	// 非发布者不能确认归还
	if w, _ := seeker.do("PUT", "/api/chats/"+cid+"/resolve", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("seeker resolve = %d, want 401", w.Code)
	}

	// 发布者确认归还
	resp = poster.mustDo("PUT", "/api/chats/"+cid+"/resolve", nil)
	if resp["points_awarded"].(float64) != 20 {
		t.Fatalf("points_awarded = %v, want 20", resp["points_awarded"])
	}

	// 重复确认被拒
	if w, _ := poster.do("PUT", "/api/chats/"+cid+"/resolve", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("double resolve = %d, want 400", w.Code)
	}

	// 物品状态已变更
	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if item.Status != models.ItemStatusResolved {
		t.Errorf("item status = %s, want resolved", item.Status)
	}

	// 归还积分记在失主（会话中非发布者一方）名下
	deadline := time.Now().Add(2 * time.Second)
	for {
		var seekerUser models.User
		db.DB.Where("email = ?", "seeker@test.edu").First(&seekerUser)
		if seekerUser.Points >= 20 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("seeker points = %d, want >= 20", seekerUser.Points)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// 已完成的会话仍可回看
	resp = seeker.mustDo("GET", "/api/chats/"+cid, nil)
	if resp["chat"].(map[string]interface{})["resolved"] != true {
		t.Error("resolved chat should stay readable with resolved=true")
	}
}

func TestSharePhoneRequiresRegisteredPhone(t *testing.T) {
	r := newTestRouter(t)

	poster := signup(t, r, "poster@test.edu", "13800000001")
	seeker := signup(t, r, "seeker@test.edu", "") // 未登记电话

	resp := poster.mustDo("POST", "/api/items", gin.H{
		"type":  "found",
		"title": "一串钥匙",
	})
	itemID := uint(resp["item"].(map[string]interface{})["id"].(float64))

	resp = seeker.mustDo("POST", "/api/chats/initiate", gin.H{"item_id": itemID})
	cid := resp["chat"].(map[string]interface{})["cid"].(string)

	if w, _ := seeker.do("POST", "/api/chats/"+cid+"/share-phone", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("share without phone = %d, want 400", w.Code)
	}

	// 补登记电话后可以分享
	seeker.mustDo("PUT", "/api/users/me/settings", gin.H{"phone": "13800000003"})
	seeker.mustDo("POST", "/api/chats/"+cid+"/share-phone", nil)
}
