package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/NissimBet/meetmylog-back/internal/cache"
	"github.com/NissimBet/meetmylog-back/internal/models"
	"github.com/NissimBet/meetmylog-back/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const meetingCacheTTL = 5 * time.Minute

// MeetingService 封装会议的创建、查询与访问判定。
// 按 meetingId 的查询走 Redis 缓存，成员或可见性变更时失效。
type MeetingService struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewMeetingService(db *gorm.DB, c cache.Cache) *MeetingService {
	return &MeetingService{db: db, cache: c}
}

// MeetingDTO 对外输出的会议数据。
type MeetingDTO struct {
	MeetingID    string    `json:"meetingId"`
	MeetingName  string    `json:"meetingName"`
	CreatorID    string    `json:"creator"`
	GroupID      string    `json:"groupId,omitempty"`
	Members      []string  `json:"members"`
	IsPublic     bool      `json:"isPublic"`
	Ongoing      bool      `json:"ongoing"`
	SharingID    string    `json:"sharingId"`
	StartedDate  time.Time `json:"startedDate"`
	FinishedDate time.Time `json:"finishedDate"`
}

// Create 创建会议，分配 meetingId 与分享用的 sharingId。
// 创建者隐式入会，成员列表去重。
func (s *MeetingService) Create(ctx context.Context, name, creatorID string, memberIDs []string, groupID string, isPublic bool) (*MeetingDTO, error) {
	ids := dedupe(append([]string{creatorID}, memberIDs...))
	users, err := findByUserIDs(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	meeting := models.Meeting{
		MeetingID:   uuid.NewString(),
		MeetingName: name,
		CreatorID:   creatorID,
		GroupID:     groupID,
		Members:     users,
		IsPublic:    isPublic,
		Ongoing:     true,
		SharingID:   uuid.NewString(),
		StartedDate: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&meeting).Error; err != nil {
		return nil, err
	}
	return toMeetingDTO(meeting), nil
}

// Get 返回会议数据，访问判定交给调用方（见 AuthorizeRead）。
func (s *MeetingService) Get(ctx context.Context, meetingID string) (*MeetingDTO, error) {
	meeting, err := s.fetch(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return toMeetingDTO(*meeting), nil
}

// AuthorizeRead 判定 callerID 能否读取会议。
// 认证在闸门处已完成；这里先区分"不存在"，再区分"无权限"，
// 对已认证调用者暴露 404 先于 403 是既定策略。
func (s *MeetingService) AuthorizeRead(ctx context.Context, meetingID, callerID string) error {
	meeting, err := s.fetch(ctx, meetingID)
	if err != nil {
		return err
	}
	if !policy.CanRead(meeting, callerID) {
		return ErrForbidden
	}
	return nil
}

// CanJoin 实现 ws.MeetingGate：进入房间等价于可读该会议。
func (s *MeetingService) CanJoin(ctx context.Context, meetingID, userID string) error {
	return s.AuthorizeRead(ctx, meetingID, userID)
}

// ListOfUser 返回用户创建或参与的会议。
func (s *MeetingService) ListOfUser(ctx context.Context, userID string) ([]MeetingDTO, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	var meetings []models.Meeting
	err := s.db.WithContext(ctx).Preload("Members").
		Joins("LEFT JOIN meeting_members ON meeting_members.meeting_id = meetings.id").
		Where("meeting_members.user_id = ? OR meetings.creator_id = ?", user.ID, userID).
		Group("meetings.id").
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	out := make([]MeetingDTO, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, *toMeetingDTO(m))
	}
	return out, nil
}

// AddMember 拉人入会并使缓存失效。
func (s *MeetingService) AddMember(ctx context.Context, meetingID, userID string) error {
	var meeting models.Meeting
	if err := s.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMeetingNotFound
		}
		return err
	}
	users, err := findByUserIDs(s.db.WithContext(ctx), []string{userID})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return ErrUserNotFound
	}
	if err := s.db.WithContext(ctx).Model(&meeting).Association("Members").Append(&users[0]); err != nil {
		return err
	}
	s.invalidate(ctx, meetingID)
	return nil
}

// meetingSnapshot 缓存里的会议快照，只保留访问判定与展示需要的字段。
type meetingSnapshot struct {
	MeetingID    string    `json:"meetingId"`
	MeetingName  string    `json:"meetingName"`
	CreatorID    string    `json:"creator"`
	GroupID      string    `json:"groupId"`
	Members      []string  `json:"members"`
	IsPublic     bool      `json:"isPublic"`
	Ongoing      bool      `json:"ongoing"`
	SharingID    string    `json:"sharingId"`
	StartedDate  time.Time `json:"startedDate"`
	FinishedDate time.Time `json:"finishedDate"`
}

func meetingCacheKey(meetingID string) string { return "meeting:" + meetingID }

// fetch 先查缓存再回源数据库。缓存故障只记日志，不影响请求。
func (s *MeetingService) fetch(ctx context.Context, meetingID string) (*models.Meeting, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, meetingCacheKey(meetingID)); err == nil {
			var snap meetingSnapshot
			if err := json.Unmarshal([]byte(raw), &snap); err == nil {
				return snap.toModel(), nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("meeting_id", meetingID).Msg("meeting cache get")
		}
	}

	var meeting models.Meeting
	if err := s.db.WithContext(ctx).Preload("Members").Where("meeting_id = ?", meetingID).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(snapshotOf(meeting)); err == nil {
			if err := s.cache.Set(ctx, meetingCacheKey(meetingID), string(raw), meetingCacheTTL); err != nil {
				log.Warn().Err(err).Str("meeting_id", meetingID).Msg("meeting cache set")
			}
		}
	}
	return &meeting, nil
}

func (s *MeetingService) invalidate(ctx context.Context, meetingID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, meetingCacheKey(meetingID)); err != nil {
		log.Warn().Err(err).Str("meeting_id", meetingID).Msg("meeting cache del")
	}
}

func snapshotOf(m models.Meeting) meetingSnapshot {
	members := make([]string, 0, len(m.Members))
	for _, u := range m.Members {
		members = append(members, u.UserID)
	}
	return meetingSnapshot{
		MeetingID:    m.MeetingID,
		MeetingName:  m.MeetingName,
		CreatorID:    m.CreatorID,
		GroupID:      m.GroupID,
		Members:      members,
		IsPublic:     m.IsPublic,
		Ongoing:      m.Ongoing,
		SharingID:    m.SharingID,
		StartedDate:  m.StartedDate,
		FinishedDate: m.FinishedDate,
	}
}

func (snap meetingSnapshot) toModel() *models.Meeting {
	members := make([]models.User, 0, len(snap.Members))
	for _, id := range snap.Members {
		members = append(members, models.User{UserID: id})
	}
	return &models.Meeting{
		MeetingID:    snap.MeetingID,
		MeetingName:  snap.MeetingName,
		CreatorID:    snap.CreatorID,
		GroupID:      snap.GroupID,
		Members:      members,
		IsPublic:     snap.IsPublic,
		Ongoing:      snap.Ongoing,
		SharingID:    snap.SharingID,
		StartedDate:  snap.StartedDate,
		FinishedDate: snap.FinishedDate,
	}
}

func toMeetingDTO(m models.Meeting) *MeetingDTO {
	members := make([]string, 0, len(m.Members))
	for _, u := range m.Members {
		members = append(members, u.UserID)
	}
	return &MeetingDTO{
		MeetingID:    m.MeetingID,
		MeetingName:  m.MeetingName,
		CreatorID:    m.CreatorID,
		GroupID:      m.GroupID,
		Members:      members,
		IsPublic:     m.IsPublic,
		Ongoing:      m.Ongoing,
		SharingID:    m.SharingID,
		StartedDate:  m.StartedDate,
		FinishedDate: m.FinishedDate,
	}
}
