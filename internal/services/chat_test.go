package services

import (
	"sync"
	"testing"
	"time"
	"xunwu/internal/apperr"
	"xunwu/internal/db"
	"xunwu/internal/models"
)

func newTestChatService(pub *fakePublisher) *ChatService {
	return NewChatService(pub, NewMailService())
}

func TestInitiateChatIdempotent(t *testing.T) {
	setupTestDB(t)
	svc := newTestChatService(&fakePublisher{})

	owner := createTestUser(t, "owner", "13800000001")
	finder := createTestUser(t, "finder", "13800000002")
	item := createTestItem(t, owner, models.ItemTypeFound, "黑色钱包")

	chat1, created, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("first initiate: %v", err)
	}
	if !created {
		t.Fatal("first initiate should create a chat")
	}
	if chat1.ExpiresAt.Before(time.Now().Add(47 * time.Hour)) {
		t.Error("expiresAt should be about 48h out")
	}

	// 重复发起，包括反向指定对方，都应返回同一个会话
	chat2, created, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("second initiate: %v", err)
	}
	if created {
		t.Error("second initiate must not create a new chat")
	}
	if chat2.Cid != chat1.Cid {
		t.Errorf("expected same chat %s, got %s", chat1.Cid, chat2.Cid)
	}

	chat3, created, err := svc.InitiateChat(item.ID, owner.ID, &finder.ID)
	if err != nil {
		t.Fatalf("reverse initiate: %v", err)
	}
	if created || chat3.Cid != chat1.Cid {
		t.Error("reverse ordering must reuse the same chat")
	}

	var count int64
	db.DB.Model(&models.Chat{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 chat, got %d", count)
	}

	// 发起积分只发一次
	waitFor(t, "initiate points", func() bool {
		return userPoints(t, finder.ID) == PointsChatInitiate
	})
	time.Sleep(50 * time.Millisecond)
	if got := userPoints(t, finder.ID); got != PointsChatInitiate {
		t.Errorf("initiate bonus awarded more than once: %d", got)
	}
}

func TestInitiateChatConcurrent(t *testing.T) {
	setupTestDB(t)
	svc := newTestChatService(&fakePublisher{})

	owner := createTestUser(t, "owner", "")
	finder := createTestUser(t, "finder", "")
	item := createTestItem(t, owner, models.ItemTypeFound, "校园卡")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.InitiateChat(item.ID, finder.ID, nil); err != nil {
				t.Errorf("concurrent initiate: %v", err)
			}
		}()
	}
	wg.Wait()

	var count int64
	db.DB.Model(&models.Chat{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 chat after concurrent initiates, got %d", count)
	}
}

func TestInitiateChatWithSelf(t *testing.T) {
	setupTestDB(t)
	svc := newTestChatService(&fakePublisher{})

	owner := createTestUser(t, "owner", "")
	item := createTestItem(t, owner, models.ItemTypeLost, "水杯")

	if _, _, err := svc.InitiateChat(item.ID, owner.ID, nil); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("self chat should be rejected, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	setupTestDB(t)
	pub := &fakePublisher{}
	svc := newTestChatService(pub)

	owner := createTestUser(t, "owner", "")
	finder := createTestUser(t, "finder", "")
	stranger := createTestUser(t, "stranger", "")
	item := createTestItem(t, owner, models.ItemTypeFound, "耳机")

	chat, _, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	msg, err := svc.SendMessage(chat.Cid, finder.ID, "你好，耳机是我丢的")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == 0 {
		t.Error("message should be persisted")
	}
	if !pub.has("new_message") {
		t.Error("expected new_message event after persist")
	}

	// 非参与者不能发消息
	if _, err := svc.SendMessage(chat.Cid, stranger.ID, "hello"); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("stranger send should be Forbidden, got %v", err)
	}

	// 违禁词拦截
	if _, err := svc.SendMessage(chat.Cid, finder.ID, "fuck off"); !apperr.IsKind(err, apperr.KindInvalidContent) {
		t.Errorf("profanity should be InvalidContent, got %v", err)
	}
	// 整词匹配不误伤
	if _, err := svc.SendMessage(chat.Cid, finder.ID, "my nickname is assassin"); err != nil {
		t.Errorf("'assassin' must not be blocked: %v", err)
	}

	// 会话不存在
	if _, err := svc.SendMessage("no-such-cid", finder.ID, "hi"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("missing chat should be NotFound, got %v", err)
	}
}

func TestSendMessageExpiredChat(t *testing.T) {
	setupTestDB(t)
	svc := newTestChatService(&fakePublisher{})

	owner := createTestUser(t, "owner", "")
	finder := createTestUser(t, "finder", "")
	item := createTestItem(t, owner, models.ItemTypeFound, "雨伞")

	chat, _, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	db.DB.Model(&models.Chat{}).Where("id = ?", chat.ID).
		Update("expires_at", time.Now().Add(-time.Hour))

	if _, err := svc.SendMessage(chat.Cid, finder.ID, "还在吗"); !apperr.IsKind(err, apperr.KindExpired) {
		t.Errorf("expired chat should reject sends, got %v", err)
	}
	if _, err := svc.GetChat(chat.Cid, finder.ID); !apperr.IsKind(err, apperr.KindExpired) {
		t.Errorf("expired chat should reject reads, got %v", err)
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	setupTestDB(t)
	svc := newTestChatService(&fakePublisher{})

	owner := createTestUser(t, "owner", "")
	finder := createTestUser(t, "finder", "")
	item := createTestItem(t, owner, models.ItemTypeFound, "课本")

	chat, _, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if _, err := svc.SendMessage(chat.Cid, finder.ID, "第一条"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SendMessage(chat.Cid, finder.ID, "第二条"); err != nil {
		t.Fatalf("send: %v", err)
	}

	loaded, err := svc.GetChat(chat.Cid, owner.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.UnreadCount != 2 {
		t.Errorf("owner unread = %d, want 2", loaded.UnreadCount)
	}

	// 自己发的消息不算未读
	loaded, err = svc.GetChat(chat.Cid, finder.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.UnreadCount != 0 {
		t.Errorf("sender unread = %d, want 0", loaded.UnreadCount)
	}

	if err := svc.MarkRead(chat.Cid, owner.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	loaded, err = svc.GetChat(chat.Cid, owner.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.UnreadCount != 0 {
		t.Errorf("unread after mark read = %d, want 0", loaded.UnreadCount)
	}
}

func TestSharePhone(t *testing.T) {
	setupTestDB(t)
	pub := &fakePublisher{}
	svc := newTestChatService(pub)

	owner := createTestUser(t, "owner", "13800000001")
	finder := createTestUser(t, "finder", "13800000002")
	noPhone := createTestUser(t, "nophone", "")
	item := createTestItem(t, owner, models.ItemTypeFound, "手表")

	chat, _, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// 未登记电话不能分享
	chatNP, _, err := svc.InitiateChat(item.ID, noPhone.ID, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := svc.SharePhone(chatNP.Cid, noPhone.ID); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("no phone on file should be InvalidState, got %v", err)
	}

	updated, err := svc.SharePhone(chat.Cid, finder.ID)
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !updated.PhoneSharedBy(finder.ID) {
		t.Error("finder flag should flip to true")
	}
	if !pub.has("phone_shared") {
		t.Error("expected phone_shared event")
	}

	waitFor(t, "share points", func() bool {
		return userPoints(t, finder.ID) == PointsChatInitiate+PointsPhoneShare
	})

	// 重复分享是 no-op：不再加积分，也不再追加消息
	if _, err := svc.SharePhone(chat.Cid, finder.ID); err != nil {
		t.Fatalf("re-share: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := userPoints(t, finder.ID); got != PointsChatInitiate+PointsPhoneShare {
		t.Errorf("re-share must not re-award points, got %d", got)
	}
	var shareMsgs int64
	db.DB.Model(&models.ChatMessage{}).
		Where("chat_id = ? AND is_phone_share = ?", chat.ID, true).Count(&shareMsgs)
	if shareMsgs != 1 {
		t.Errorf("expected exactly 1 phone-share message, got %d", shareMsgs)
	}
}

func TestSharePhoneConcurrent(t *testing.T) {
	setupTestDB(t)
	svc := newTestChatService(&fakePublisher{})

	owner := createTestUser(t, "owner", "13800000001")
	finder := createTestUser(t, "finder", "13800000002")
	item := createTestItem(t, owner, models.ItemTypeFound, "充电宝")

	chat, _, err := svc.InitiateChat(item.ID, finder.ID, nil)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SharePhone(chat.Cid, finder.ID); err != nil {
				t.Errorf("concurrent share: %v", err)
			}
		}()
	}
	wg.Wait()

	var shareMsgs int64
	db.DB.Model(&models.ChatMessage{}).
		Where("chat_id = ? AND is_phone_share = ?", chat.ID, true).Count(&shareMsgs)
	if shareMsgs != 1 {
		t.Errorf("concurrent shares produced %d share messages, want 1", shareMsgs)
	}

	waitFor(t, "single share bonus", func() bool {
		return userPoints(t, finder.ID) >= PointsChatInitiate+PointsPhoneShare
	})
	time.Sleep(50 * time.Millisecond)
	if got := userPoints(t, finder.ID); got != PointsChatInitiate+PointsPhoneShare {
		t.Errorf("share bonus awarded %d total points, want %d", got, PointsChatInitiate+PointsPhoneShare)
	}
}
