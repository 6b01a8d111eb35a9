package service

import (
	"errors"

	"github.com/NissimBet/meetmylog-back/internal/auth"
	"github.com/NissimBet/meetmylog-back/internal/config"
	"github.com/NissimBet/meetmylog-back/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService 封装用户注册、登录与查询。
type UserService struct {
	db  *gorm.DB
	cfg config.Config
}

func NewUserService(db *gorm.DB, cfg config.Config) *UserService {
	return &UserService{db: db, cfg: cfg}
}

// UserDTO 对外输出的用户公开数据，不含密码散列。
type UserDTO struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// AuthResult 注册或登录成功后返回的身份数据与新签发的 token。
type AuthResult struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// Register 创建用户并直接签发 token，注册即登录。
func (s *UserService) Register(username, name, email, password string) (*AuthResult, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{UserID: uuid.NewString(), Username: username, Name: name, Email: email, PasswordHash: hash}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login 用邮箱和密码换取新 token。
func (s *UserService) Login(email, password string) (*AuthResult, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *UserService) issue(user models.User) (*AuthResult, error) {
	token, err := auth.IssueToken(auth.Claims{
		UserID:   user.UserID,
		Username: user.Username,
		Email:    user.Email,
	}, s.cfg.JWTSecret, s.cfg.TokenTTLHours)
	if err != nil {
		return nil, err
	}
	return &AuthResult{UserID: user.UserID, Username: user.Username, Email: user.Email, Token: token}, nil
}

// Get 查询用户公开数据。
func (s *UserService) Get(userID string) (*UserDTO, error) {
	var user models.User
	if err := s.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &UserDTO{UserID: user.UserID, Username: user.Username, Name: user.Name, Email: user.Email}, nil
}

// findByUserIDs 按对外 uuid 批量取用户行。
func findByUserIDs(db *gorm.DB, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := db.Where("user_id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
