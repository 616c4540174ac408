package handlers

import (
	"net/http"
	"time"
	"xunwu/internal/db"
	"xunwu/internal/middleware"
	"xunwu/internal/models"
	"xunwu/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

func (h *UserHandler) Me(c *gin.Context) {
	user := currentUser(c)

	_, levelName, levelIcon := utils.GetUserLevel(user.Points)

	var unread int64
	if count, ok := c.Get(middleware.UnreadCountKey); ok {
		unread = count.(int64)
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"level_name":  levelName,
		"level_icon":  levelIcon,
		"days_joined": utils.GetDaysSinceJoined(user.CreatedAt),
		"unread":      unread,
		"has_phone":   user.HasPhone(),
	})
}

type updateSettingsRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	Phone    string `json:"phone"`
}

func (h *UserHandler) UpdateSettings(c *gin.Context) {
	user := currentUser(c)

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求"})
		return
	}

	updates := map[string]interface{}{}
	if req.Username != "" {
		updates["username"] = req.Username
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if req.Bio != "" {
		updates["bio"] = req.Bio
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if len(updates) > 0 {
		if err := db.DB.Model(user).Updates(updates).Error; err != nil {
			Fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) PointLogs(c *gin.Context) {
	user := currentUser(c)

	var logs []models.PointLog
	db.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(100).
		Find(&logs)

	c.JSON(http.StatusOK, gin.H{"logs": logs, "points": user.Points})
}

// Leaderboard 积分排行榜，5 分钟本地缓存
func (h *UserHandler) Leaderboard(c *gin.Context) {
	const cacheKey = "leaderboard_top20"

	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		c.JSON(http.StatusOK, gin.H{"leaderboard": cached})
		return
	}

	var users []models.User
	db.DB.Select("id", "username", "avatar", "points", "level").
		Order("points DESC").
		Limit(20).
		Find(&users)

	utils.GetCache().Set(cacheKey, users, 5*time.Minute)
	c.JSON(http.StatusOK, gin.H{"leaderboard": users})
}

// Bookmarks 我关注的物品
func (h *UserHandler) Bookmarks(c *gin.Context) {
	user := currentUser(c)

	var bookmarks []models.Bookmark
	db.DB.Preload("Item").Preload("Item.User").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&bookmarks)

	c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
}
