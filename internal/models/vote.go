package models

import (
	"time"
)

// ItemVote 物品的顶/踩记录。(item_id, user_id) 唯一，
// 同一用户对同一物品只能持有一种态度，改票时原地更新 Value。
type ItemVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;index;uniqueIndex:idx_item_voter" json:"item_id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_item_voter" json:"user_id"`
	Value     int       `gorm:"not null" json:"value"` // 1 or -1
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
