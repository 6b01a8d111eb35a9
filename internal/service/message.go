package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NissimBet/meetmylog-back/internal/metrics"
	"github.com/NissimBet/meetmylog-back/internal/models"
	"github.com/NissimBet/meetmylog-back/internal/queue"
	"gorm.io/gorm"
)

// ChatAppendTaskType 聊天记录落库任务的队列类型名。
const ChatAppendTaskType = "chat:append"

// chatAppendPayload 队列里传输的 JSON 负载，与领域类型解耦。
type chatAppendPayload struct {
	MeetingID string    `json:"meetingId"`
	FromID    string    `json:"from"`
	Message   string    `json:"message"`
	TimeSent  time.Time `json:"timeSent"`
}

// MessageService 封装聊天消息的写入与查询。
// 写入只负责投递后台任务，实时广播与落库两条路径不做事务耦合。
type MessageService struct {
	db *gorm.DB
	q  queue.Client
}

func NewMessageService(db *gorm.DB, q queue.Client) *MessageService {
	return &MessageService{db: db, q: q}
}

// Record 投递一条落库任务，实现 ws.ChatRecorder。
func (s *MessageService) Record(ctx context.Context, meetingID, fromID, message string, timeSent time.Time) error {
	payload, err := json.Marshal(chatAppendPayload{MeetingID: meetingID, FromID: fromID, Message: message, TimeSent: timeSent})
	if err != nil {
		return err
	}
	if err := s.q.Enqueue(ctx, queue.Task{Type: ChatAppendTaskType, Payload: payload}); err != nil {
		return err
	}
	metrics.ChatTasksEnqueued.Inc()
	return nil
}

// ChatMessageDTO 对外输出的聊天记录。
type ChatMessageDTO struct {
	ID       uint      `json:"id"`
	From     string    `json:"from"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
	TimeSent time.Time `json:"timeSent"`
}

// ListByMeeting 分页查询会议聊天记录，按时间升序返回。
func (s *MessageService) ListByMeeting(ctx context.Context, meetingID string, limit int, beforeID uint) ([]ChatMessageDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []models.ChatMessage
	if err := q.Order("id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	// 反转为升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	usernames, err := s.resolveUsernames(ctx, msgs)
	if err != nil {
		return nil, err
	}
	out := make([]ChatMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessageDTO{
			ID:       m.ID,
			From:     m.FromID,
			Username: usernames[m.FromID],
			Message:  m.Message,
			TimeSent: m.TimeSent,
		})
	}
	return out, nil
}

// resolveUsernames 批量取出消息涉及的用户名。
func (s *MessageService) resolveUsernames(ctx context.Context, msgs []models.ChatMessage) (map[string]string, error) {
	seen := make(map[string]struct{}, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.FromID]; ok {
			continue
		}
		seen[m.FromID] = struct{}{}
		ids = append(ids, m.FromID)
	}
	usernames := make(map[string]string, len(ids))
	if len(ids) > 0 {
		var users []models.User
		if err := s.db.WithContext(ctx).Select("user_id", "username").Where("user_id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usernames[u.UserID] = u.Username
		}
	}
	return usernames, nil
}

// RegisterChatAppendHandler 把落库任务的 handler 绑定到 worker。
// handler 幂等性由插入列的自增主键与重试语义共同保证：重复插入
// 同样内容的消息在业务上可接受，失败则交由队列按策略重试。
func RegisterChatAppendHandler(srv queue.Server, db *gorm.DB) {
	srv.Register(ChatAppendTaskType, func(ctx context.Context, t queue.Task) error {
		var p chatAppendPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// 负载损坏没有重试的意义，直接吞掉。
			return nil
		}
		msg := models.ChatMessage{MeetingID: p.MeetingID, FromID: p.FromID, Message: p.Message, TimeSent: p.TimeSent}
		return db.WithContext(ctx).Create(&msg).Error
	})
}
