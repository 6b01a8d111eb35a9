package models

import "time"

// User 注册用户，UserID 为对外暴露的 uuid，数据库自增主键不出接口。
type User struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"uniqueIndex;size:36;not null"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Name         string `gorm:"size:128;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Group 用户组，Members 为多对多关联。
type Group struct {
	ID        uint   `gorm:"primaryKey"`
	GroupID   string `gorm:"uniqueIndex;size:36;not null"`
	Name      string `gorm:"size:128;not null"`
	CreatorID string `gorm:"index;size:36;not null"`
	Members   []User `gorm:"many2many:group_members"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Meeting 会议资源。访问控制只关心 CreatorID、Members 与 IsPublic，
// 其余字段属于普通 CRUD 数据。SharingID 用于分享链接。
type Meeting struct {
	ID           uint   `gorm:"primaryKey"`
	MeetingID    string `gorm:"uniqueIndex;size:36;not null"`
	MeetingName  string `gorm:"size:128;not null"`
	CreatorID    string `gorm:"index;size:36;not null"`
	GroupID      string `gorm:"index;size:36"`
	Members      []User `gorm:"many2many:meeting_members"`
	IsPublic     bool   `gorm:"not null;default:false"`
	Ongoing      bool   `gorm:"not null;default:false"`
	SharingID    string `gorm:"size:36"`
	StartedDate  time.Time
	FinishedDate time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChatMessage 会议聊天记录，由后台任务异步落库。
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	MeetingID string    `gorm:"index:idx_chat_meeting;size:36;not null"`
	FromID    string    `gorm:"index;size:36;not null"`
	Message   string    `gorm:"type:text;not null"`
	TimeSent  time.Time `gorm:"not null"`
	CreatedAt time.Time
}
