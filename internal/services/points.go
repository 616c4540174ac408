package services

import (
	"log"
	"sync"
	"xunwu/internal/db"
	"xunwu/internal/models"
	"xunwu/internal/utils"

	"gorm.io/gorm"
)

// 积分动作常量
const (
	ActionItemCreate    = "发布物品信息"
	ActionChatInitiate  = "发起联系"
	ActionPhoneShare    = "交换联系方式"
	ActionItemResolved  = "物归原主"
	ActionClaimApproved = "认领成功"
	ActionReturnItem    = "归还物品"
)

// 积分值常量
const (
	PointsItemCreate    = 2
	PointsChatInitiate  = 2
	PointsPhoneShare    = 5
	PointsItemResolved  = 20 // 归还成功奖励给"捡到方"（会话中非发布者的一方）
	PointsClaimApproved = 10
	PointsReturnItem    = 10
)

// AddPoints 使用事务添加积分并记录明细
// 传入用户ID、积分变动值（正数增加，负数扣除）、动作描述
func AddPoints(userID uint, amount int, action string) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		return AddPointsTx(tx, userID, amount, action)
	})
}

// AddPointsTx 在已有事务内添加积分。归还确认这类积分发放
// 必须和状态变更同一个事务提交，不能走异步。
func AddPointsTx(tx *gorm.DB, userID uint, amount int, action string) error {
	// 1. 创建积分明细记录
	entry := models.PointLog{
		UserID: userID,
		Amount: amount,
		Action: action,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	// 2. 更新用户积分余额
	if err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", amount)).
		Error; err != nil {
		return err
	}

	// 3. 按新余额重算等级
	var user models.User
	if err := tx.Select("points").First(&user, userID).Error; err != nil {
		return err
	}
	level, _, _ := utils.GetUserLevel(user.Points)
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("level", level).
		Error
}

// asyncWG 跟踪在途的异步副作用 goroutine（积分、通知），
// 测试清理时需要等它们落库
var asyncWG sync.WaitGroup

// AddPointsAsync 异步添加积分（在 goroutine 中调用），失败只记日志
func AddPointsAsync(userID uint, amount int, action string) {
	asyncWG.Add(1)
	go func() {
		defer asyncWG.Done()
		if err := AddPoints(userID, amount, action); err != nil {
			log.Printf("积分发放失败 user=%d action=%s: %v", userID, action, err)
		}
	}()
}
