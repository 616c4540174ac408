package models

import (
	"time"
)

// ChatTTL 会话有效期：超时且未完成归还的会话不再可用
const ChatTTL = 48 * time.Hour

// Chat 围绕一个物品、两位用户之间的私聊会话。
// 参与者按 UserAID < UserBID 规范化存储，(item_id, user_a_id, user_b_id)
// 上的唯一索引保证同一对用户对同一物品只有一个会话。
type Chat struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	Cid     string `gorm:"uniqueIndex;size:36;not null" json:"cid"` // 对外暴露的 UUID
	ItemID  uint   `gorm:"not null;index;uniqueIndex:idx_chat_item_pair" json:"item_id"`
	Item    Item   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"item"`
	UserAID uint   `gorm:"not null;uniqueIndex:idx_chat_item_pair" json:"user_a_id"`
	UserA   User   `gorm:"foreignKey:UserAID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_a"`
	UserBID uint   `gorm:"not null;uniqueIndex:idx_chat_item_pair" json:"user_b_id"`
	UserB   User   `gorm:"foreignKey:UserBID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_b"`

	// 双方的"已分享联系方式"标记，只会从 false 变成 true
	PhoneSharedA bool `gorm:"default:false" json:"phone_shared_a"`
	PhoneSharedB bool `gorm:"default:false" json:"phone_shared_b"`

	LastReadA *time.Time `json:"last_read_a"`
	LastReadB *time.Time `json:"last_read_b"`

	Resolved  bool      `gorm:"default:false" json:"resolved"` // 终态，不可逆
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []ChatMessage `gorm:"constraint:OnDelete:CASCADE;" json:"messages,omitempty"`

	// 非数据库字段
	UnreadCount int64 `gorm:"-" json:"unread_count"`
}

// IsParticipant 判断用户是否为会话参与者
func (c *Chat) IsParticipant(userID uint) bool {
	return userID == c.UserAID || userID == c.UserBID
}

// OtherParticipant 返回对方的用户 ID
func (c *Chat) OtherParticipant(userID uint) uint {
	if userID == c.UserAID {
		return c.UserBID
	}
	return c.UserAID
}

// PhoneSharedBy 返回指定参与者的分享标记
func (c *Chat) PhoneSharedBy(userID uint) bool {
	if userID == c.UserAID {
		return c.PhoneSharedA
	}
	if userID == c.UserBID {
		return c.PhoneSharedB
	}
	return false
}

// BothPhonesShared 双方都已分享联系方式（归还确认的前置条件）
func (c *Chat) BothPhonesShared() bool {
	return c.PhoneSharedA && c.PhoneSharedB
}

// LastReadBy 返回指定参与者的最后已读时间
func (c *Chat) LastReadBy(userID uint) *time.Time {
	if userID == c.UserAID {
		return c.LastReadA
	}
	if userID == c.UserBID {
		return c.LastReadB
	}
	return nil
}

// Expired 会话是否已过期。已完成归还的会话永久可访问
func (c *Chat) Expired(now time.Time) bool {
	return !c.Resolved && now.After(c.ExpiresAt)
}

type ChatMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ChatID       uint      `gorm:"not null;index" json:"chat_id"`
	SenderID     uint      `gorm:"not null;index" json:"sender_id"`
	Sender       User      `gorm:"foreignKey:SenderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"sender"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	IsPhoneShare bool      `gorm:"default:false" json:"is_phone_share"` // 系统生成的"已分享联系方式"消息
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizePair 将两个参与者按 ID 升序排列，作为会话唯一键的一部分
func NormalizePair(x, y uint) (uint, uint) {
	if x < y {
		return x, y
	}
	return y, x
}
