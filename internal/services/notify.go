package services

import (
	"log"
	"xunwu/internal/db"
	"xunwu/internal/models"
)

// CreateNotification 写入一条站内通知
func CreateNotification(n *models.Notification) error {
	return db.DB.Create(n).Error
}

// NotifyAsync 异步创建通知。通知属于尽力而为的副作用，
// 失败只记日志，绝不影响主请求的结果。
func NotifyAsync(n models.Notification) {
	asyncWG.Add(1)
	go func() {
		defer asyncWG.Done()
		if err := CreateNotification(&n); err != nil {
			log.Printf("通知创建失败 user=%d type=%s: %v", n.UserID, n.Type, err)
		}
	}()
}

// NotifyAdminsAsync 给所有管理员发通知（举报场景）
func NotifyAdminsAsync(build func(adminID uint) models.Notification) {
	asyncWG.Add(1)
	go func() {
		defer asyncWG.Done()
		var admins []models.User
		if err := db.DB.Where("role = ?", "admin").Find(&admins).Error; err != nil {
			log.Printf("查询管理员失败: %v", err)
			return
		}
		for _, admin := range admins {
			n := build(admin.ID)
			if err := CreateNotification(&n); err != nil {
				log.Printf("管理员通知创建失败 user=%d: %v", admin.ID, err)
			}
		}
	}()
}
