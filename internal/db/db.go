package db

import (
	"log"
	"os"
	"xunwu/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=xunwu port=5432 sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	// TranslateError 让唯一索引冲突统一表现为 gorm.ErrDuplicatedKey，
	// 会话/认领的并发去重都依赖这一点
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")
}

// Migrate 建表/建索引，测试里也会对着内存库调用
func Migrate(d *gorm.DB) error {
	return d.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Claim{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.ItemVote{},
		&models.Bookmark{},
		&models.Report{},
		&models.PointLog{},
		&models.Notification{},
	)
}
