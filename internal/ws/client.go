package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/NissimBet/meetmylog-back/internal/auth"
	"github.com/NissimBet/meetmylog-back/internal/config"
	"github.com/NissimBet/meetmylog-back/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MeetingGate 判定用户能否进入某会议的房间，由 service 层实现。
type MeetingGate interface {
	CanJoin(ctx context.Context, meetingID, userID string) error
}

// ChatRecorder 记录一条聊天消息（异步落库），失败不影响实时分发。
type ChatRecorder interface {
	Record(ctx context.Context, meetingID, fromID, message string, timeSent time.Time) error
}

// Client 一条已认证的 websocket 连接。rooms 只被 readPump 一个
// goroutine 读写，无需加锁；send 由 close 统一关闭，恰好一次。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	claims    *auth.Claims
	rooms     map[string]*Room
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound 客户端上行帧：join-room 或 message。
type Inbound struct {
	Event   string `json:"event"`
	Room    string `json:"room"`
	Message string `json:"message"`
}

// Outbound 下行聊天帧，字段与落库的聊天记录一致。
type Outbound struct {
	Event    string    `json:"event"`
	Room     string    `json:"room"`
	From     string    `json:"from"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
	TimeSent time.Time `json:"timeSent"`
}

// Serve 处理 /ws：先认证（Authorization 头或 token 查询参数），
// 再升级连接并启动读写泵。
func Serve(h *Hub, cfg config.Config, gate MeetingGate, recorder ChatRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = auth.ExtractBearer(c.GetHeader("Authorization"))
		}
		claims, ok := auth.DecodeClaims(token, cfg.JWTSecret)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user unauthenticated"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := &Client{
			hub:    h,
			conn:   conn,
			send:   make(chan []byte, 256),
			claims: claims,
			rooms:  make(map[string]*Room),
		}
		metrics.WsConnections.Inc()

		go client.writePump()
		client.readPump(gate, recorder)
	}
}

func (c *Client) readPump(gate MeetingGate, recorder ChatRecorder) {
	defer func() {
		// 断开即离开所有已加入的房间。
		for _, room := range c.rooms {
			room.unregister <- c
		}
		c.close()
		metrics.WsConnections.Dec()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20) // 1MB
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Room == "" {
			continue
		}
		switch in.Event {
		case "join-room":
			c.joinRoom(in.Room, gate)
		case "message":
			c.sendMessage(in, recorder)
		}
	}
}

// joinRoom 加入房间，重复加入为 no-op。进入前按访问策略校验资格。
func (c *Client) joinRoom(roomID string, gate MeetingGate) {
	if _, ok := c.rooms[roomID]; ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gate.CanJoin(ctx, roomID, c.claims.UserID); err != nil {
		c.sendError("cannot join room")
		return
	}
	room := c.hub.GetRoom(roomID)
	room.register <- c
	c.rooms[roomID] = room
}

// sendMessage 将消息广播给同房间的其他成员，并异步追加到聊天记录。
// 两条路径互不耦合：落库失败只记日志，广播照常。
func (c *Client) sendMessage(in Inbound, recorder ChatRecorder) {
	room, ok := c.rooms[in.Room]
	if !ok || in.Message == "" {
		return
	}
	out := Outbound{
		Event:    "message",
		Room:     in.Room,
		From:     c.claims.UserID,
		Username: c.claims.Username,
		Message:  in.Message,
		TimeSent: time.Now(),
	}
	b, err := json.Marshal(out)
	if err != nil {
		return
	}
	metrics.WsMessagesTotal.Inc()
	room.broadcast <- frame{from: c, data: b}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := recorder.Record(ctx, in.Room, c.claims.UserID, in.Message, out.TimeSent); err != nil {
		log.Warn().Err(err).Str("meeting_id", in.Room).Msg("record chat message")
	}
}

func (c *Client) sendError(msg string) {
	b, err := json.Marshal(gin.H{"event": "error", "message": msg})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
