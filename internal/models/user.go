package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // Hash
	Phone     string    `gorm:"size:20" json:"-"`  // 联系电话，仅通过"交换联系方式"向对方公开
	Avatar    string    `gorm:"default:🌱" json:"avatar"`
	Bio       string    `gorm:"size:200" json:"bio"`
	Points    int       `gorm:"default:0" json:"points"`                     // 热心积分
	Level     int       `gorm:"default:1" json:"level"`                      // 由积分推导，AddPoints 时重算
	Role      string    `gorm:"size:20;default:'user';not null" json:"role"` // user, admin
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPhone 是否登记了联系电话（交换联系方式的前置条件）
func (u *User) HasPhone() bool {
	return u.Phone != ""
}
