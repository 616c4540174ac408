package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// channelPrefix redis 频道前缀，格式 "chat_events:{cid}"
const channelPrefix = "chat_events:"

// Event 实时事件的线上格式
type Event struct {
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// Publisher 实时事件发布接口。业务层只在持久化写入成功后调用，
// 投递失败只记录日志，不影响主流程。
type Publisher interface {
	Publish(channel, event string, payload interface{})
}

// NopPublisher 空实现，测试和无实时层的场景使用
type NopPublisher struct{}

func (NopPublisher) Publish(channel, event string, payload interface{}) {}

// RedisPublisher 通过 redis pub/sub 广播事件，支持多实例部署
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(addr, password string, db int) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPublisher{rdb: rdb}, nil
}

func (p *RedisPublisher) Publish(channel, event string, payload interface{}) {
	data, err := json.Marshal(Event{
		Event:   event,
		Channel: channel,
		Payload: payload,
		At:      time.Now(),
	})
	if err != nil {
		log.Printf("realtime: marshal event %s failed: %v", event, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := p.rdb.Publish(ctx, channelPrefix+channel, data).Err(); err != nil {
		log.Printf("realtime: publish %s to %s failed: %v", event, channel, err)
	}
}

// Client 暴露底层连接给订阅桥使用
func (p *RedisPublisher) Client() *redis.Client {
	return p.rdb
}

// HubPublisher 进程内直连 Hub 的发布器，单实例部署无需 redis
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(channel, event string, payload interface{}) {
	data, err := json.Marshal(Event{
		Event:   event,
		Channel: channel,
		Payload: payload,
		At:      time.Now(),
	})
	if err != nil {
		log.Printf("realtime: marshal event %s failed: %v", event, err)
		return
	}
	p.hub.Broadcast(channel, data)
}
