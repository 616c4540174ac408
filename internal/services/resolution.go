package services

import (
	"fmt"
	"time"
	"xunwu/internal/apperr"
	"xunwu/internal/db"
	"xunwu/internal/models"
	"xunwu/internal/realtime"

	"gorm.io/gorm"
)

// ResolutionService 归还确认的状态机：只有物品发布者可以确认，
// 且必须双方都已交换联系方式。确认成功后物品状态、会话标记、
// 积分发放在同一个事务里落库，实时事件和邮件在提交后发出。
type ResolutionService struct {
	pub  realtime.Publisher
	mail *MailService
}

func NewResolutionService(pub realtime.Publisher, mail *MailService) *ResolutionService {
	return &ResolutionService{pub: pub, mail: mail}
}

// ResolveCheck canResolve 接口的返回，供前端决定是否放开按钮
type ResolveCheck struct {
	CanResolve  bool   `json:"can_resolve"`
	IsItemOwner bool   `json:"is_item_owner"`
	SelfShared  bool   `json:"self_shared"`
	OtherShared bool   `json:"other_shared"`
	Reason      string `json:"reason,omitempty"`
}

// CanResolve 纯读探测，不做任何修改。真正的校验在 Resolve 里
// 原子地重做一遍，这里的结果只用于界面展示。
func (s *ResolutionService) CanResolve(cid string, callerID uint) (*ResolveCheck, error) {
	var chat models.Chat
	if err := db.DB.Preload("Item").Where("cid = ?", cid).First(&chat).Error; err != nil {
		return nil, apperr.NotFound("会话不存在")
	}
	if !chat.IsParticipant(callerID) {
		return nil, apperr.Forbidden("你不是该会话的参与者")
	}

	check := &ResolveCheck{
		IsItemOwner: callerID == chat.Item.UserID,
		SelfShared:  chat.PhoneSharedBy(callerID),
		OtherShared: chat.PhoneSharedBy(chat.OtherParticipant(callerID)),
	}

	switch {
	case chat.Resolved:
		check.Reason = "该会话已完成归还"
	case chat.Expired(time.Now()):
		check.Reason = "会话已过期"
	case !check.IsItemOwner:
		check.Reason = "只有发布者可以确认归还"
	case !check.SelfShared:
		check.Reason = "你还未分享联系方式"
	case !check.OtherShared:
		check.Reason = "对方还未分享联系方式"
	default:
		check.CanResolve = true
	}
	return check, nil
}

// Resolve 确认归还。并发调用时条件更新保证只有一次成功：
// 输掉的请求拿到 InvalidState，不会重复改状态或重复发积分。
func (s *ResolutionService) Resolve(cid string, callerID uint) (int, error) {
	var chat models.Chat
	if err := db.DB.Preload("Item").Where("cid = ?", cid).First(&chat).Error; err != nil {
		return 0, apperr.NotFound("会话不存在")
	}
	item := chat.Item

	if callerID != item.UserID {
		return 0, apperr.Forbidden("只有发布者可以确认归还")
	}
	if chat.Resolved {
		return 0, apperr.InvalidState("该会话已完成归还")
	}
	if chat.Expired(time.Now()) {
		return 0, apperr.Expired("会话已过期")
	}
	if !chat.PhoneSharedBy(callerID) {
		return 0, apperr.PreconditionFailed("你还未分享联系方式")
	}
	if !chat.PhoneSharedBy(chat.OtherParticipant(callerID)) {
		return 0, apperr.PreconditionFailed("对方还未分享联系方式")
	}

	// 会话中非发布者的一方即"捡到方"，归还奖励只给这一方
	finder := chat.OtherParticipant(item.UserID)
	now := time.Now()

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Chat{}).
			Where("id = ? AND resolved = ?", chat.ID, false).
			Update("resolved", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("该会话已完成归还")
		}

		res = tx.Model(&models.Item{}).
			Where("id = ? AND status IN ?", item.ID,
				[]models.ItemStatus{models.ItemStatusActive, models.ItemStatusClaimed}).
			Updates(map[string]interface{}{
				"status":      models.ItemStatusResolved,
				"resolved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("物品状态已变更，无法确认归还")
		}

		// 归还奖励是结果的一部分，必须和状态变更一起提交
		return AddPointsTx(tx, finder, PointsItemResolved, ActionItemResolved)
	})
	if err != nil {
		return 0, err
	}

	s.pub.Publish(chat.Cid, "chat_resolved", map[string]interface{}{
		"cid":     chat.Cid,
		"item_id": item.ID,
	})
	s.pub.Publish(chat.Cid, "item_status_changed", map[string]interface{}{
		"item_id":     item.ID,
		"status":      models.ItemStatusResolved,
		"resolved_at": now,
	})

	NotifyAsync(models.Notification{
		UserID:  finder,
		ActorID: &callerID,
		Type:    models.NotificationTypeItemResolved,
		Message: fmt.Sprintf("《%s》已确认物归原主，感谢你的帮助！获得 %d 积分", item.Title, PointsItemResolved),
		ItemID:  &item.ID,
		ChatCid: chat.Cid,
	})

	asyncWG.Add(1)
	go func() {
		defer asyncWG.Done()
		var owner models.User
		if err := db.DB.First(&owner, item.UserID).Error; err == nil {
			s.mail.SendResolutionEmail(owner.Email, item.Title)
		}
	}()

	return PointsItemResolved, nil
}
