package services

import (
	"errors"
	"fmt"
	"xunwu/internal/apperr"
	"xunwu/internal/db"
	"xunwu/internal/models"

	"gorm.io/gorm"
)

// ClaimService 认领申请：提交后由发布者批准或驳回，
// 批准/驳回都是终态，重复处理返回 InvalidState。
type ClaimService struct {
	mail *MailService
}

func NewClaimService(mail *MailService) *ClaimService {
	return &ClaimService{mail: mail}
}

// Submit 提交认领申请。同一人对同一物品只能有一条待处理申请，
// 并发提交由部分唯一索引兜底。
func (s *ClaimService) Submit(itemID, claimantID uint, description, answers string) (*models.Claim, error) {
	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		return nil, apperr.NotFound("物品不存在")
	}
	if item.UserID == claimantID {
		return nil, apperr.Forbidden("不能认领自己发布的物品")
	}
	if item.Status != models.ItemStatusActive {
		return nil, apperr.InvalidState("该物品当前不可认领")
	}

	var pending int64
	db.DB.Model(&models.Claim{}).
		Where("item_id = ? AND claimant_id = ? AND status = ?", itemID, claimantID, models.ClaimStatusPending).
		Count(&pending)
	if pending > 0 {
		return nil, apperr.Conflict("你已有待处理的认领申请")
	}

	claim := models.Claim{
		ItemID:              itemID,
		ClaimantID:          claimantID,
		Description:         description,
		VerificationAnswers: answers,
		Status:              models.ClaimStatusPending,
	}
	if err := db.DB.Create(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("你已有待处理的认领申请")
		}
		return nil, err
	}

	NotifyAsync(models.Notification{
		UserID:  item.UserID,
		ActorID: &claimantID,
		Type:    models.NotificationTypeClaimReceived,
		Message: fmt.Sprintf("你发布的《%s》收到新的认领申请", item.Title),
		ItemID:  &itemID,
	})

	asyncWG.Add(1)
	go func() {
		defer asyncWG.Done()
		var owner, claimant models.User
		if db.DB.First(&owner, item.UserID).Error == nil &&
			db.DB.First(&claimant, claimantID).Error == nil {
			s.mail.SendClaimEmail(owner.Email, item.Title, claimant.Username, description)
		}
	}()

	return &claim, nil
}

// Approve 批准认领：申请转为 approved，物品转为 claimed。
// 两个条件更新在一个事务里，任何一步没改到行就整体回滚——
// 同一物品上两个申请被并发批准时，后到的一方在物品更新处失败。
func (s *ClaimService) Approve(itemID, claimID, callerID uint) (*models.Claim, error) {
	item, claim, err := s.loadForDecision(itemID, claimID, callerID)
	if err != nil {
		return nil, err
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Claim{}).
			Where("id = ? AND status = ?", claim.ID, models.ClaimStatusPending).
			Update("status", models.ClaimStatusApproved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("该认领申请已处理")
		}

		res = tx.Model(&models.Item{}).
			Where("id = ? AND status = ?", item.ID, models.ItemStatusActive).
			Updates(map[string]interface{}{
				"status":        models.ItemStatusClaimed,
				"claimed_by_id": claim.ClaimantID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.InvalidState("物品已被认领或已关闭")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	claim.Status = models.ClaimStatusApproved

	AddPointsAsync(claim.ClaimantID, PointsClaimApproved, ActionClaimApproved)
	AddPointsAsync(item.UserID, PointsReturnItem, ActionReturnItem)
	NotifyAsync(models.Notification{
		UserID:  claim.ClaimantID,
		ActorID: &callerID,
		Type:    models.NotificationTypeClaimApproved,
		Message: fmt.Sprintf("你对《%s》的认领申请已通过，请联系发布者取回", item.Title),
		ItemID:  &item.ID,
	})

	return claim, nil
}

// Reject 驳回认领，不改变物品状态
func (s *ClaimService) Reject(itemID, claimID, callerID uint) (*models.Claim, error) {
	item, claim, err := s.loadForDecision(itemID, claimID, callerID)
	if err != nil {
		return nil, err
	}

	res := db.DB.Model(&models.Claim{}).
		Where("id = ? AND status = ?", claim.ID, models.ClaimStatusPending).
		Update("status", models.ClaimStatusRejected)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidState("该认领申请已处理")
	}
	claim.Status = models.ClaimStatusRejected

	NotifyAsync(models.Notification{
		UserID:  claim.ClaimantID,
		ActorID: &callerID,
		Type:    models.NotificationTypeClaimRejected,
		Message: fmt.Sprintf("你对《%s》的认领申请未通过", item.Title),
		ItemID:  &item.ID,
	})

	return claim, nil
}

func (s *ClaimService) loadForDecision(itemID, claimID, callerID uint) (*models.Item, *models.Claim, error) {
	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		return nil, nil, apperr.NotFound("物品不存在")
	}
	if item.UserID != callerID {
		return nil, nil, apperr.Forbidden("只有发布者可以处理认领申请")
	}

	var claim models.Claim
	if err := db.DB.Where("id = ? AND item_id = ?", claimID, itemID).First(&claim).Error; err != nil {
		return nil, nil, apperr.NotFound("认领申请不存在")
	}
	return &item, &claim, nil
}
