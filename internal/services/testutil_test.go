package services

import (
	"fmt"
	"testing"
	"time"
	"xunwu/internal/db"
	"xunwu/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int

// setupTestDB 每个测试用独立的内存库，替换全局 db.DB
func setupTestDB(t *testing.T) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	// 单连接串行化写入，让并发用例行为可预期
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	gdb.Exec("PRAGMA busy_timeout = 5000")

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	old := db.DB
	db.DB = gdb
	t.Cleanup(func() {
		// 先等在途的异步积分 goroutine 落库，再换回旧连接，
		// 否则它们可能在清理后访问 nil 或下一个测试的库。
		asyncWG.Wait()
		db.DB = old
		sqlDB.Close()
	})
}

func createTestUser(t *testing.T, username, phone string) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@test.edu",
		Password: "hashed",
		Phone:    phone,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

func createTestItem(t *testing.T, owner *models.User, itemType models.ItemType, title string) *models.Item {
	t.Helper()
	item := models.Item{
		UserID: owner.ID,
		Type:   itemType,
		Title:  title,
		Status: models.ItemStatusActive,
	}
	if err := db.DB.Create(&item).Error; err != nil {
		t.Fatalf("create item %s: %v", title, err)
	}
	return &item
}

// waitFor 轮询等待异步副作用落库
func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func userPoints(t *testing.T, userID uint) int {
	t.Helper()
	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		t.Fatalf("load user %d: %v", userID, err)
	}
	return user.Points
}

// fakePublisher 记录发布的事件，供断言
type fakePublisher struct {
	events []fakeEvent
}

type fakeEvent struct {
	Channel string
	Event   string
}

func (p *fakePublisher) Publish(channel, event string, payload interface{}) {
	p.events = append(p.events, fakeEvent{Channel: channel, Event: event})
}

func (p *fakePublisher) has(event string) bool {
	for _, e := range p.events {
		if e.Event == event {
			return true
		}
	}
	return false
}
