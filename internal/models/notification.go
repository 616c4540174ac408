package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeClaimReceived NotificationType = "claim_received" // 收到认领申请
	NotificationTypeClaimApproved NotificationType = "claim_approved"
	NotificationTypeClaimRejected NotificationType = "claim_rejected"
	NotificationTypeNewMessage    NotificationType = "new_message"
	NotificationTypePhoneShared   NotificationType = "phone_shared"
	NotificationTypeItemResolved  NotificationType = "item_resolved"
	NotificationTypeReport        NotificationType = "report" // 举报通知（管理员）
	NotificationTypeSystem        NotificationType = "system"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor     User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Message   string           `gorm:"type:text" json:"message"`
	ItemID    *uint            `gorm:"index" json:"item_id"`
	ChatCid   string           `gorm:"size:36" json:"chat_cid"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
