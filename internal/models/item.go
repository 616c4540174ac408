package models

import (
	"time"
)

type ItemType string

const (
	ItemTypeLost  ItemType = "lost"  // 寻物启事
	ItemTypeFound ItemType = "found" // 失物招领
)

type ItemStatus string

// 状态只能单向流转：active -> claimed/resolved/closed，不会回到 active
const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusClaimed  ItemStatus = "claimed"
	ItemStatusResolved ItemStatus = "resolved"
	ItemStatusClosed   ItemStatus = "closed"
)

type Item struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;index" json:"user_id"` // 发布者，创建后不可变
	User           User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Type           ItemType   `gorm:"type:varchar(10);not null;index" json:"type"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"` // Markdown 原文
	Category       string     `gorm:"size:50;index" json:"category"`
	LocationArea   string     `gorm:"size:100" json:"location_area"`   // 区域名称，如"图书馆"
	LocationDetail string     `gorm:"size:200" json:"location_detail"` // 具体位置描述
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Status         ItemStatus `gorm:"type:varchar(10);not null;default:'active';index" json:"status"`
	ClaimedByID    *uint      `gorm:"index" json:"claimed_by_id"` // 认领通过的申请人
	ResolvedAt     *time.Time `json:"resolved_at"`                // 归还成功时间，只写一次，驱动 30 天后清理
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Claims []Claim `gorm:"constraint:OnDelete:CASCADE;" json:"claims,omitempty"`

	// 非数据库字段，用于查询时填充
	Upvotes         int    `gorm:"-" json:"upvotes"`
	Downvotes       int    `gorm:"-" json:"downvotes"`
	DescriptionHTML string `gorm:"-" json:"description_html,omitempty"`
}
