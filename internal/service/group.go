package service

import (
	"errors"

	"github.com/NissimBet/meetmylog-back/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupService 封装用户组相关的业务逻辑。
type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// GroupDTO 对外输出的组数据，成员以 userId 列表表示。
type GroupDTO struct {
	GroupID   string   `json:"groupId"`
	Name      string   `json:"name"`
	CreatorID string   `json:"creator"`
	Members   []string `json:"members"`
}

// Create 创建组。创建者总是隐式成员，成员列表去重后保存。
func (s *GroupService) Create(name, creatorID string, memberIDs []string) (*GroupDTO, error) {
	ids := dedupe(append([]string{creatorID}, memberIDs...))
	users, err := findByUserIDs(s.db, ids)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	group := models.Group{GroupID: uuid.NewString(), Name: name, CreatorID: creatorID, Members: users}
	if err := s.db.Create(&group).Error; err != nil {
		return nil, err
	}
	return toGroupDTO(group), nil
}

// Get 查询单个组。
func (s *GroupService) Get(groupID string) (*GroupDTO, error) {
	group, err := s.load(groupID)
	if err != nil {
		return nil, err
	}
	return toGroupDTO(*group), nil
}

// ListOfUser 返回用户参与的全部组。
func (s *GroupService) ListOfUser(userID string) ([]GroupDTO, error) {
	var user models.User
	if err := s.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	var groups []models.Group
	err := s.db.Preload("Members").
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", user.ID).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	out := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, *toGroupDTO(g))
	}
	return out, nil
}

// AddMember 把用户加入组，已在组内时为 no-op。
func (s *GroupService) AddMember(groupID, userID string) error {
	group, err := s.loadRow(groupID)
	if err != nil {
		return err
	}
	users, err := findByUserIDs(s.db, []string{userID})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return ErrUserNotFound
	}
	return s.db.Model(group).Association("Members").Append(&users[0])
}

// RemoveMember 把用户移出组，不在组内时亦不报错。
func (s *GroupService) RemoveMember(groupID, userID string) error {
	group, err := s.loadRow(groupID)
	if err != nil {
		return err
	}
	users, err := findByUserIDs(s.db, []string{userID})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return ErrUserNotFound
	}
	return s.db.Model(group).Association("Members").Delete(&users[0])
}

func (s *GroupService) load(groupID string) (*models.Group, error) {
	var group models.Group
	if err := s.db.Preload("Members").Where("group_id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) loadRow(groupID string) (*models.Group, error) {
	var group models.Group
	if err := s.db.Where("group_id = ?", groupID).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func toGroupDTO(g models.Group) *GroupDTO {
	members := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, m.UserID)
	}
	return &GroupDTO{GroupID: g.GroupID, Name: g.Name, CreatorID: g.CreatorID, Members: members}
}

// dedupe 去重且保持首次出现的顺序。
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
