package ws

import (
	"sync"
	"sync/atomic"

	"github.com/NissimBet/meetmylog-back/internal/metrics"
)

// Hub 管理以 meetingId 为键的房间，懒创建且并发安全。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*Room)} }

// GetRoom 返回指定房间，未初始化时懒加载并启动其事件循环。
func (h *Hub) GetRoom(roomID string) *Room {
	h.mu.RLock()
	room := h.rooms[roomID]
	h.mu.RUnlock()
	if room != nil {
		return room
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	room = h.rooms[roomID]
	if room != nil {
		return room
	}
	room = NewRoom(roomID)
	h.rooms[roomID] = room
	go room.run()
	return room
}

// Online 返回房间当前在线人数，房间不存在视为 0。
func (h *Hub) Online(roomID string) int {
	h.mu.RLock()
	room := h.rooms[roomID]
	h.mu.RUnlock()
	if room == nil {
		return 0
	}
	return room.Online()
}

// frame 房间内待分发的一条消息，记录来源以便跳过发送者自身。
type frame struct {
	from *Client
	data []byte
}

// Room 单个房间。成员表只被 run 这一个 goroutine 触碰，
// 房间之间互不加锁，注册/注销/广播全部经由 channel 串行化。
type Room struct {
	roomID     string
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan frame
	online     int32
}

func NewRoom(roomID string) *Room {
	return &Room{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan frame, 256),
	}
}

func (r *Room) run() {
	for {
		select {
		case c := <-r.register:
			r.clients[c] = true
			atomic.StoreInt32(&r.online, int32(len(r.clients)))
			metrics.WsRoomJoins.Inc()
		case c := <-r.unregister:
			if _, ok := r.clients[c]; ok {
				delete(r.clients, c)
				atomic.StoreInt32(&r.online, int32(len(r.clients)))
			}
		case f := <-r.broadcast:
			// 发送者不回显。某个接收方缓冲已满时丢弃这一条，
			// 绝不因为单个慢消费者拖累同房间其他人。
			for c := range r.clients {
				if c == f.from {
					continue
				}
				select {
				case c.send <- f.data:
				default:
				}
			}
		}
	}
}

// Online 返回房间在线客户端数量，供 REST 接口复用。
func (r *Room) Online() int { return int(atomic.LoadInt32(&r.online)) }
