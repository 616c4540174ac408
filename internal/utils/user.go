package utils

import (
	"math/rand"
	"time"
)

// GetUserLevel 根据积分返回等级序号和称号
func GetUserLevel(points int) (level int, name string, icon string) {
	switch {
	case points >= 1000:
		return 5, "寻物大侠", "🏆"
	case points >= 500:
		return 4, "热心市民", "💎"
	case points >= 200:
		return 3, "拾金不昧", "✨"
	case points >= 50:
		return 2, "乐于助人", "🌟"
	default:
		return 1, "初来乍到", "🌱"
	}
}

// GetDaysSinceJoined 计算注册天数
func GetDaysSinceJoined(createdAt time.Time) int {
	return int(time.Since(createdAt).Hours() / 24)
}

// GetRandomEmoji 返回一个随机 emoji 用于默认头像
func GetRandomEmoji() string {
	emojis := []string{"🌱", "🌟", "🎒", "📱", "🔑", "🧸", "🦊", "🐨", "🐸", "🦉", "🐱", "🐶"}
	return emojis[rand.Intn(len(emojis))]
}

// GetCommonEmojis 返回常用 emoji 列表供用户选择头像
func GetCommonEmojis() []string {
	return []string{
		"🌱", "🌟", "🎒", "📱", "🔑", "🧸", "☂️", "💳",
		"🦊", "🐨", "🐸", "🦉", "🐯", "🐱", "🐶", "🐼",
		"😀", "😃", "😄", "😁", "😊", "😎", "🤓", "🧐",
		"👨‍💻", "👩‍💻", "👨‍🎨", "👩‍🎨", "🧑‍🚀", "👨‍🔬", "👩‍🔬", "🧙",
		"⭐", "✨", "🔥", "💡", "🚀", "🎯", "💎", "🏆",
	}
}
