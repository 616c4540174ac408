package handlers

import (
	"log"
	"net/http"
	"time"
	"xunwu/internal/db"
	"xunwu/internal/models"
	"xunwu/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 同源校验交给部署层（反向代理），这里放行
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Subscribe 订阅某个会话的实时事件。websocket 只做下行推送，
// 断线重连后客户端需要重新拉取会话详情，不依赖错过的事件。
func (h *WSHandler) Subscribe(c *gin.Context) {
	user := currentUser(c)
	cid := c.Param("cid")

	var chat models.Chat
	if err := db.DB.Where("cid = ?", cid).First(&chat).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "会话不存在"})
		return
	}
	if !chat.IsParticipant(user.ID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "你不是该会话的参与者"})
		return
	}
	if chat.Expired(time.Now()) {
		c.JSON(http.StatusGone, gin.H{"error": "会话已过期"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	h.hub.RegisterClient(&realtime.Client{
		UserID:  user.ID,
		Channel: cid,
		Conn:    conn,
		Send:    make(chan []byte, 64),
	})
}
