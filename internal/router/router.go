package router

import (
	"xunwu/internal/handlers"
	"xunwu/internal/middleware"
	"xunwu/internal/realtime"
	"xunwu/internal/services"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 组装服务和路由。实时发布器从外面注入，
// 单实例直连 Hub，多实例走 redis。
func RegisterRoutes(r *gin.Engine, hub *realtime.Hub, pub realtime.Publisher) {
	mail := services.NewMailService()
	chatService := services.NewChatService(pub, mail)
	resolutionService := services.NewResolutionService(pub, mail)
	claimService := services.NewClaimService(mail)

	// Handlers
	authHandler := handlers.NewAuthHandler()
	itemHandler := handlers.NewItemHandler()
	claimHandler := handlers.NewClaimHandler(claimService)
	chatHandler := handlers.NewChatHandler(chatService, resolutionService)
	userHandler := handlers.NewUserHandler()
	notificationHandler := handlers.NewNotificationHandler()
	wsHandler := handlers.NewWSHandler(hub)

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/items", itemHandler.List)          // 物品信息列表
	api.GET("/items/:id", itemHandler.Detail)    // 物品详情
	api.GET("/users/leaderboard", userHandler.Leaderboard)

	// 受保护路由 (Protected Routes)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/items", itemHandler.Create)                  // 发布寻物/招领
		authorized.POST("/items/:id/vote", itemHandler.Vote)           // 顶/踩
		authorized.POST("/items/:id/bookmark", itemHandler.ToggleBookmark)
		authorized.POST("/items/:id/report", itemHandler.Report) // 举报

		authorized.POST("/items/:id/claim", claimHandler.Submit)                   // 提交认领申请
		authorized.PUT("/items/:id/claims/:claimId/approve", claimHandler.Approve) // 批准认领
		authorized.PUT("/items/:id/claims/:claimId/reject", claimHandler.Reject)   // 驳回认领

		authorized.POST("/chats/initiate", chatHandler.Initiate)        // 发起会话
		authorized.GET("/chats", chatHandler.List)                      // 我的会话
		authorized.GET("/chats/:cid", chatHandler.Detail)               // 会话详情
		authorized.POST("/chats/:cid/messages", chatHandler.SendMessage)
		authorized.PUT("/chats/:cid/read", chatHandler.MarkRead)
		authorized.GET("/chats/:cid/can-resolve", chatHandler.CanResolve) // 归还确认前置检查
		authorized.PUT("/chats/:cid/resolve", chatHandler.Resolve)        // 确认物归原主
		authorized.POST("/chats/:cid/share-phone", chatHandler.SharePhone)

		authorized.GET("/users/me", userHandler.Me)
		authorized.PUT("/users/me/settings", userHandler.UpdateSettings)
		authorized.GET("/users/me/points", userHandler.PointLogs)
		authorized.GET("/users/me/bookmarks", userHandler.Bookmarks)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)
	}

	// websocket 订阅（会话实时事件）
	ws := r.Group("/ws")
	ws.Use(middleware.AuthRequired())
	{
		ws.GET("/chats/:cid", wsHandler.Subscribe)
	}
}
