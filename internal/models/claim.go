package models

import (
	"time"
)

type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Claim 认领申请。同一申请人对同一物品最多存在一条 pending 记录，
// 由部分唯一索引兜底（并发提交时数据库侧拦截）。
type Claim struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	ItemID              uint        `gorm:"not null;index;uniqueIndex:idx_claim_pending_once,where:status = 'pending'" json:"item_id"`
	ClaimantID          uint        `gorm:"not null;index;uniqueIndex:idx_claim_pending_once" json:"claimant_id"`
	Claimant            User        `gorm:"foreignKey:ClaimantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"claimant"`
	Description         string      `gorm:"type:text;not null" json:"description"`
	VerificationAnswers string      `gorm:"type:text" json:"verification_answers"`
	Status              ClaimStatus `gorm:"type:varchar(10);not null;default:'pending'" json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}
