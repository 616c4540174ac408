package services

import (
	"errors"
	"fmt"
	"time"
	"xunwu/internal/apperr"
	"xunwu/internal/db"
	"xunwu/internal/models"
	"xunwu/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatService 会话与消息。所有写操作都以持久化成功为准，
// 实时推送和通知在写入之后才发出。
type ChatService struct {
	pub  realtime.Publisher
	mail *MailService
}

func NewChatService(pub realtime.Publisher, mail *MailService) *ChatService {
	return &ChatService{pub: pub, mail: mail}
}

// InitiateChat 发起（或复用）围绕某个物品的会话。
// 对方默认为物品发布者，也可以显式指定（比如发布者主动联系认领人）。
// 同一对用户对同一物品永远只有一个会话，重复调用幂等返回已有会话，
// 首次创建才给发起人加积分、给对方发通知。
func (s *ChatService) InitiateChat(itemID, requesterID uint, recipientID *uint) (*models.Chat, bool, error) {
	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		return nil, false, apperr.NotFound("物品不存在")
	}

	other := item.UserID
	if recipientID != nil && *recipientID != 0 {
		other = *recipientID
	}
	if other == requesterID {
		return nil, false, apperr.InvalidState("不能和自己发起会话")
	}

	var recipient models.User
	if err := db.DB.First(&recipient, other).Error; err != nil {
		return nil, false, apperr.NotFound("对方用户不存在")
	}

	a, b := models.NormalizePair(requesterID, other)

	var existing models.Chat
	err := db.DB.Where("item_id = ? AND user_a_id = ? AND user_b_id = ?", itemID, a, b).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	chat := models.Chat{
		Cid:       uuid.NewString(),
		ItemID:    itemID,
		UserAID:   a,
		UserBID:   b,
		ExpiresAt: time.Now().Add(models.ChatTTL),
	}
	if err := db.DB.Create(&chat).Error; err != nil {
		// 并发创建同一会话时靠唯一索引兜底，输掉的一方复用已有记录
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := db.DB.Where("item_id = ? AND user_a_id = ? AND user_b_id = ?", itemID, a, b).
				First(&existing).Error; err != nil {
				return nil, false, err
			}
			return &existing, false, nil
		}
		return nil, false, err
	}

	AddPointsAsync(requesterID, PointsChatInitiate, ActionChatInitiate)
	NotifyAsync(models.Notification{
		UserID:  other,
		ActorID: &requesterID,
		Type:    models.NotificationTypeNewMessage,
		Message: fmt.Sprintf("有人就《%s》向你发起了会话", item.Title),
		ItemID:  &itemID,
		ChatCid: chat.Cid,
	})

	return &chat, true, nil
}

// GetChat 加载会话详情（含消息），校验参与者身份和有效期
func (s *ChatService) GetChat(cid string, userID uint) (*models.Chat, error) {
	var chat models.Chat
	err := db.DB.Preload("Item").Preload("UserA").Preload("UserB").
		Preload("Messages", func(d *gorm.DB) *gorm.DB { return d.Order("id ASC") }).
		Preload("Messages.Sender").
		Where("cid = ?", cid).First(&chat).Error
	if err != nil {
		return nil, apperr.NotFound("会话不存在")
	}
	if !chat.IsParticipant(userID) {
		return nil, apperr.Forbidden("你不是该会话的参与者")
	}
	if chat.Expired(time.Now()) {
		return nil, apperr.Expired("会话已过期")
	}

	chat.UnreadCount = s.UnreadCount(&chat, userID)
	return &chat, nil
}

// ListChats 当前用户的全部有效会话
func (s *ChatService) ListChats(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := db.DB.Preload("Item").Preload("UserA").Preload("UserB").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Where("resolved = ? OR expires_at > ?", true, time.Now()).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	for i := range chats {
		chats[i].UnreadCount = s.UnreadCount(&chats[i], userID)
	}
	return chats, nil
}

// SendMessage 发送消息。落库成功后才推送实时事件；
// 给对方的通知是尽力而为，失败不影响发送结果。
func (s *ChatService) SendMessage(cid string, senderID uint, content string) (*models.ChatMessage, error) {
	var chat models.Chat
	if err := db.DB.Preload("Item").Where("cid = ?", cid).First(&chat).Error; err != nil {
		return nil, apperr.NotFound("会话不存在")
	}
	if !chat.IsParticipant(senderID) {
		return nil, apperr.Forbidden("你不是该会话的参与者")
	}
	if chat.Expired(time.Now()) {
		return nil, apperr.Expired("会话已过期")
	}
	if content == "" {
		return nil, apperr.InvalidContent("消息内容不能为空")
	}
	if ContainsProfanity(content) {
		return nil, apperr.InvalidContent("消息包含违禁词，请文明交流")
	}

	msg := models.ChatMessage{
		ChatID:   chat.ID,
		SenderID: senderID,
		Content:  content,
	}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		// 发送即已读自己的消息
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).
			Update(lastReadColumn(&chat, senderID), time.Now()).Error
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(chat.Cid, "new_message", msg)

	other := chat.OtherParticipant(senderID)
	NotifyAsync(models.Notification{
		UserID:  other,
		ActorID: &senderID,
		Type:    models.NotificationTypeNewMessage,
		Message: fmt.Sprintf("你在《%s》的会话中收到新消息", chat.Item.Title),
		ItemID:  &chat.ItemID,
		ChatCid: chat.Cid,
	})

	return &msg, nil
}

// MarkRead 更新已读时间，幂等
func (s *ChatService) MarkRead(cid string, userID uint) error {
	var chat models.Chat
	if err := db.DB.Where("cid = ?", cid).First(&chat).Error; err != nil {
		return apperr.NotFound("会话不存在")
	}
	if !chat.IsParticipant(userID) {
		return apperr.Forbidden("你不是该会话的参与者")
	}
	if chat.Expired(time.Now()) {
		return apperr.Expired("会话已过期")
	}
	return db.DB.Model(&models.Chat{}).Where("id = ?", chat.ID).
		Update(lastReadColumn(&chat, userID), time.Now()).Error
}

// UnreadCount 对方发来的、晚于自己已读时间的消息数
func (s *ChatService) UnreadCount(chat *models.Chat, userID uint) int64 {
	query := db.DB.Model(&models.ChatMessage{}).
		Where("chat_id = ? AND sender_id <> ?", chat.ID, userID)
	if last := chat.LastReadBy(userID); last != nil {
		query = query.Where("created_at > ?", *last)
	}
	var count int64
	query.Count(&count)
	return count
}

// SharePhone 向对方公开自己的联系电话。标记 false->true 是唯一触发点：
// 已分享过的重复调用是完全的 no-op，不再发消息也不再加积分。
func (s *ChatService) SharePhone(cid string, userID uint) (*models.Chat, error) {
	var chat models.Chat
	if err := db.DB.Preload("Item").Where("cid = ?", cid).First(&chat).Error; err != nil {
		return nil, apperr.NotFound("会话不存在")
	}
	if !chat.IsParticipant(userID) {
		return nil, apperr.Forbidden("你不是该会话的参与者")
	}
	if chat.Expired(time.Now()) {
		return nil, apperr.Expired("会话已过期")
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		return nil, apperr.NotFound("用户不存在")
	}
	if !user.HasPhone() {
		return nil, apperr.InvalidState("请先在个人资料中登记联系电话")
	}

	if chat.PhoneSharedBy(userID) {
		return &chat, nil
	}

	// 条件更新只认 false->true 的那一次，并发重复分享只有一个赢家
	col := phoneSharedColumn(&chat, userID)
	res := db.DB.Model(&models.Chat{}).
		Where("id = ? AND "+col+" = ?", chat.ID, false).
		Update(col, true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.DB.Preload("Item").First(&chat, chat.ID).Error; err != nil {
			return nil, err
		}
		return &chat, nil
	}

	msg := models.ChatMessage{
		ChatID:       chat.ID,
		SenderID:     userID,
		Content:      fmt.Sprintf("📱 %s 分享了联系方式：%s", user.Username, user.Phone),
		IsPhoneShare: true,
	}
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).
			Update(lastReadColumn(&chat, userID), time.Now()).Error
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(chat.Cid, "phone_shared", msg)

	other := chat.OtherParticipant(userID)
	AddPointsAsync(userID, PointsPhoneShare, ActionPhoneShare)
	NotifyAsync(models.Notification{
		UserID:  other,
		ActorID: &userID,
		Type:    models.NotificationTypePhoneShared,
		Message: fmt.Sprintf("%s 在《%s》的会话中分享了联系方式", user.Username, chat.Item.Title),
		ItemID:  &chat.ItemID,
		ChatCid: chat.Cid,
	})

	if err := db.DB.Preload("Item").First(&chat, chat.ID).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func lastReadColumn(chat *models.Chat, userID uint) string {
	if userID == chat.UserAID {
		return "last_read_a"
	}
	return "last_read_b"
}

func phoneSharedColumn(chat *models.Chat, userID uint) string {
	if userID == chat.UserAID {
		return "phone_shared_a"
	}
	return "phone_shared_b"
}
