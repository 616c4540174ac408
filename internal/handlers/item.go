package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"xunwu/internal/db"
	"xunwu/internal/middleware"
	"xunwu/internal/models"
	"xunwu/internal/services"
	"xunwu/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ItemHandler struct{}

func NewItemHandler() *ItemHandler {
	return &ItemHandler{}
}

type createItemRequest struct {
	Type           string  `json:"type" binding:"required,oneof=lost found"`
	Title          string  `json:"title" binding:"required,max=100"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	LocationArea   string  `json:"location_area"`
	LocationDetail string  `json:"location_detail"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

func (h *ItemHandler) Create(c *gin.Context) {
	user := currentUser(c)

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请填写物品类型和标题"})
		return
	}
	if services.ContainsProfanity(req.Title) || services.ContainsProfanity(req.Description) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "内容包含违禁词"})
		return
	}

	item := models.Item{
		UserID:         user.ID,
		Type:           models.ItemType(req.Type),
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		LocationArea:   req.LocationArea,
		LocationDetail: req.LocationDetail,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Status:         models.ItemStatusActive,
	}
	if err := db.DB.Create(&item).Error; err != nil {
		Fail(c, err)
		return
	}

	services.AddPointsAsync(user.ID, services.PointsItemCreate, services.ActionItemCreate)

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// List 最新的物品信息，支持按类型/分类/状态过滤
func (h *ItemHandler) List(c *gin.Context) {
	query := db.DB.Preload("User").Order("created_at DESC").Limit(50)

	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	if cat := c.Query("category"); cat != "" {
		query = query.Where("category = ?", cat)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status = ?", models.ItemStatusActive)
	}

	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		Fail(c, err)
		return
	}
	fillVoteCounts(items)

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ItemHandler) Detail(c *gin.Context) {
	id := utils.StringToUint(c.Param("id"))

	var item models.Item
	query := db.DB.Preload("User")
	if err := query.First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "物品不存在"})
		return
	}

	// 认领申请只有发布者可见
	if u, exists := c.Get(middleware.CheckUserKey); exists {
		if u.(*models.User).ID == item.UserID {
			db.DB.Preload("Claimant").Where("item_id = ?", item.ID).
				Order("created_at ASC").Find(&item.Claims)
		}
	}

	item.DescriptionHTML = utils.RenderMarkdown(item.Description)
	items := []models.Item{item}
	fillVoteCounts(items)

	c.JSON(http.StatusOK, gin.H{"item": items[0]})
}

// fillVoteCounts 批量填充顶/踩数
func fillVoteCounts(items []models.Item) {
	for i := range items {
		var up, down int64
		db.DB.Model(&models.ItemVote{}).Where("item_id = ? AND value = 1", items[i].ID).Count(&up)
		db.DB.Model(&models.ItemVote{}).Where("item_id = ? AND value = -1", items[i].ID).Count(&down)
		items[i].Upvotes = int(up)
		items[i].Downvotes = int(down)
	}
}

type voteRequest struct {
	Value int `json:"value" binding:"required,oneof=1 -1"`
}

// Vote 顶/踩物品信息。一人一票，重复投同向票幂等，反向票改票
func (h *ItemHandler) Vote(c *gin.Context) {
	user := currentUser(c)
	itemID := utils.StringToUint(c.Param("id"))

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的投票"})
		return
	}

	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "物品不存在"})
		return
	}

	var existing models.ItemVote
	err := db.DB.Where("item_id = ? AND user_id = ?", itemID, user.ID).First(&existing).Error
	switch {
	case err == nil && existing.Value == req.Value:
		// 已投过同向票，幂等返回
	case err == nil:
		// 改票：同一用户永远只占 upvotes/downvotes 中的一个
		if err := db.DB.Model(&existing).Update("value", req.Value).Error; err != nil {
			Fail(c, err)
			return
		}
	default:
		vote := models.ItemVote{ItemID: itemID, UserID: user.ID, Value: req.Value}
		if err := db.DB.Create(&vote).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			Fail(c, err)
			return
		}
	}

	var up, down int64
	db.DB.Model(&models.ItemVote{}).Where("item_id = ? AND value = 1", itemID).Count(&up)
	db.DB.Model(&models.ItemVote{}).Where("item_id = ? AND value = -1", itemID).Count(&down)
	c.JSON(http.StatusOK, gin.H{"upvotes": up, "downvotes": down})
}

// ToggleBookmark 关注/取消关注物品
func (h *ItemHandler) ToggleBookmark(c *gin.Context) {
	user := currentUser(c)
	itemID := utils.StringToUint(c.Param("id"))

	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "物品不存在"})
		return
	}

	var existing models.Bookmark
	err := db.DB.Where("user_id = ? AND item_id = ?", user.ID, itemID).First(&existing).Error
	if err == nil {
		db.DB.Delete(&existing)
		c.JSON(http.StatusOK, gin.H{"bookmarked": false})
		return
	}

	bookmark := models.Bookmark{UserID: user.ID, ItemID: itemID}
	if err := db.DB.Create(&bookmark).Error; err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": true})
}

// Report 举报违规物品信息，异步通知所有管理员
func (h *ItemHandler) Report(c *gin.Context) {
	user := currentUser(c)
	itemID := utils.StringToUint(c.Param("id"))
	reason := c.PostForm("reason")
	if reason == "" {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			reason = body.Reason
		}
	}
	if reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请填写举报原因"})
		return
	}

	var item models.Item
	if err := db.DB.First(&item, itemID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "物品不存在"})
		return
	}

	report := models.Report{
		UserID: user.ID,
		ItemID: itemID,
		Reason: reason,
	}
	if err := db.DB.Create(&report).Error; err != nil {
		Fail(c, err)
		return
	}

	actorID := user.ID
	services.NotifyAdminsAsync(func(adminID uint) models.Notification {
		return models.Notification{
			UserID:  adminID,
			ActorID: &actorID,
			Type:    models.NotificationTypeReport,
			Message: fmt.Sprintf("物品信息《%s》被举报，原因：%s", item.Title, reason),
			ItemID:  &item.ID,
		}
	})

	c.JSON(http.StatusOK, gin.H{"message": "已举报"})
}
