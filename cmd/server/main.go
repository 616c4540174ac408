package main

import (
	"context"
	"log"
	"os"
	"xunwu/internal/db"
	"xunwu/internal/middleware"
	"xunwu/internal/realtime"
	"xunwu/internal/router"
	"xunwu/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// 启动过期信息清理任务
	services.StartReaper()

	// 实时层：hub 负责 websocket 分发；
	// 配置了 REDIS_ADDR 时事件走 redis pub/sub（多实例），否则进程内直连
	hub := realtime.NewHub()
	go hub.Run()

	var pub realtime.Publisher
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisPub, err := realtime.NewRedisPublisher(addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		go hub.RunRedisBridge(context.Background(), redisPub.Client())
		pub = redisPub
		log.Println("Realtime events via redis pub/sub")
	} else {
		pub = realtime.NewHubPublisher(hub)
		log.Println("Realtime events via in-process hub")
	}

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("xunwu_session", store))

	// Middleware
	r.Use(middleware.LoadUser())

	// Routes
	router.RegisterRoutes(r, hub, pub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("XunWu server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
