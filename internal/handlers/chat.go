package handlers

import (
	"net/http"
	"xunwu/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chats      *services.ChatService
	resolution *services.ResolutionService
}

func NewChatHandler(chats *services.ChatService, resolution *services.ResolutionService) *ChatHandler {
	return &ChatHandler{chats: chats, resolution: resolution}
}

type initiateChatRequest struct {
	ItemID      uint  `json:"item_id" binding:"required"`
	RecipientID *uint `json:"recipient_id"` // 缺省为物品发布者
}

func (h *ChatHandler) Initiate(c *gin.Context) {
	user := currentUser(c)

	var req initiateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请指定物品"})
		return
	}

	chat, created, err := h.chats.InitiateChat(req.ItemID, user.ID, req.RecipientID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat, "created": created})
}

func (h *ChatHandler) List(c *gin.Context) {
	user := currentUser(c)

	chats, err := h.chats.ListChats(user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *ChatHandler) Detail(c *gin.Context) {
	user := currentUser(c)

	chat, err := h.chats.GetChat(c.Param("cid"), user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	user := currentUser(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "消息内容不能为空"})
		return
	}

	msg, err := h.chats.SendMessage(c.Param("cid"), user.ID, req.Content)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	user := currentUser(c)

	if err := h.chats.MarkRead(c.Param("cid"), user.ID); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *ChatHandler) SharePhone(c *gin.Context) {
	user := currentUser(c)

	chat, err := h.chats.SharePhone(c.Param("cid"), user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "已向对方公开你的联系方式",
		"chat":    chat,
	})
}

func (h *ChatHandler) CanResolve(c *gin.Context) {
	user := currentUser(c)

	check, err := h.resolution.CanResolve(c.Param("cid"), user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *ChatHandler) Resolve(c *gin.Context) {
	user := currentUser(c)

	points, err := h.resolution.Resolve(c.Param("cid"), user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "已确认物归原主",
		"points_awarded": points,
	})
}
