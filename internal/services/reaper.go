package services

import (
	"log"
	"time"
	"xunwu/internal/db"
	"xunwu/internal/models"
)

// RetentionDays 过期清理的时间窗口：
// 活跃满 30 天仍无人认领的信息自动关闭；归还满 30 天的信息物理删除。
const RetentionDays = 30

// StartReaper 启动每日定时清理任务（凌晨 3 点执行）
func StartReaper() {
	go func() {
		for {
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			time.Sleep(time.Until(next))

			log.Println("开始过期信息清理...")
			closed, purged, err := SweepOnce(time.Now())
			if err != nil {
				log.Printf("过期信息清理失败: %v", err)
				continue
			}
			log.Printf("过期信息清理完成：关闭 %d 条，删除 %d 条", closed, purged)
		}
	}()
}

// SweepOnce 执行一轮清理，返回关闭和删除的条数
func SweepOnce(now time.Time) (closed int64, purged int64, err error) {
	cutoff := now.AddDate(0, 0, -RetentionDays)

	// 1. 长期无人认领的活跃信息转为关闭
	res := db.DB.Model(&models.Item{}).
		Where("status = ? AND created_at < ?", models.ItemStatusActive, cutoff).
		Update("status", models.ItemStatusClosed)
	if res.Error != nil {
		return 0, 0, res.Error
	}
	closed = res.RowsAffected

	// 2. 归还满 30 天的信息物理删除，关联的会话/申请靠外键级联清理
	res = db.DB.Where("status = ? AND resolved_at < ?", models.ItemStatusResolved, cutoff).
		Delete(&models.Item{})
	if res.Error != nil {
		return closed, 0, res.Error
	}
	purged = res.RowsAffected

	return closed, purged, nil
}
