package realtime

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub 管理所有 websocket 订阅，按会话频道分组广播
type Hub struct {
	subscribers sync.Map // channel -> *sync.Map (map[*Client]bool)

	register   chan *Client
	unregister chan *Client
	broadcast  chan *frame
}

type frame struct {
	channel string
	payload []byte
}

// Client 一条 websocket 连接对某个频道的订阅
type Client struct {
	UserID  uint
	Channel string
	Conn    *websocket.Conn
	Send    chan []byte
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *frame, 256),
	}
}

// Run 主循环，需在独立 goroutine 中运行
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case f := <-h.broadcast:
			h.broadcastTo(f.channel, f.payload)
		}
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Broadcast 向频道的所有订阅者推送消息
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.broadcast <- &frame{channel: channel, payload: payload}
}

func (h *Hub) addClient(client *Client) {
	subs, _ := h.subscribers.LoadOrStore(client.Channel, &sync.Map{})
	subs.(*sync.Map).Store(client, true)

	go client.writePump()
	go client.readPump(h.unregister)
}

func (h *Hub) removeClient(client *Client) {
	if subs, ok := h.subscribers.Load(client.Channel); ok {
		subMap := subs.(*sync.Map)
		if _, loaded := subMap.LoadAndDelete(client); !loaded {
			return // 已经移除过
		}
	}

	close(client.Send)
	client.Conn.Close()
}

func (h *Hub) broadcastTo(channel string, payload []byte) {
	subs, ok := h.subscribers.Load(channel)
	if !ok {
		return
	}

	subs.(*sync.Map).Range(func(key, _ interface{}) bool {
		client := key.(*Client)
		select {
		case client.Send <- payload:
		default:
			// 发送缓冲已满，踢掉慢客户端，避免拖垮其他订阅者
			go h.UnregisterClient(client)
		}
		return true
	})
}

// SubscriberCount 返回频道当前的订阅数
func (h *Hub) SubscriberCount(channel string) int {
	subs, ok := h.subscribers.Load(channel)
	if !ok {
		return 0
	}
	count := 0
	subs.(*sync.Map).Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// RunRedisBridge 订阅 redis 上的全部会话事件并转发到本地 Hub。
// 阻塞运行，需在独立 goroutine 中调用。
func (h *Hub) RunRedisBridge(ctx context.Context, rdb *redis.Client) {
	pubsub := rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			channel := strings.TrimPrefix(msg.Channel, channelPrefix)
			h.Broadcast(channel, []byte(msg.Payload))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(unregister chan *Client) {
	defer func() {
		unregister <- c
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// 客户端不通过 websocket 发消息（发消息走 REST），这里只消费心跳
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime: websocket read error: %v", err)
			}
			return
		}
	}
}
