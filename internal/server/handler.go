package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/NissimBet/meetmylog-back/internal/auth"
	"github.com/NissimBet/meetmylog-back/internal/config"
	"github.com/NissimBet/meetmylog-back/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler 聚合全部 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg        config.Config
	userSvc    *service.UserService
	groupSvc   *service.GroupService
	meetingSvc *service.MeetingService
	msgSvc     *service.MessageService
}

func NewHandler(cfg config.Config, userSvc *service.UserService, groupSvc *service.GroupService, meetingSvc *service.MeetingService, msgSvc *service.MessageService) *Handler {
	return &Handler{cfg: cfg, userSvc: userSvc, groupSvc: groupSvc, meetingSvc: meetingSvc, msgSvc: msgSvc}
}

// Register 处理用户注册，成功即返回新签发的 token。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Email == "" || req.Name == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 72 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	result, err := h.userSvc.Register(req.Username, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already in use"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Login 处理登录，换取 token。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
		return
	}
	result, err := h.userSvc.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ValidateToken 校验请求携带的 token 是否仍然有效。
func (h *Handler) ValidateToken(c *gin.Context) {
	token := auth.ExtractBearer(c.GetHeader("Authorization"))
	if !auth.VerifyToken(token, h.cfg.JWTSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user unauthenticated"})
		return
	}
	c.Status(http.StatusOK)
}

// GetUser 返回用户公开数据。
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.userSvc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error().Err(err).Str("user_id", c.Param("id")).Msg("get user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateGroup 创建用户组，调用者自动成为创建者和成员。
func (h *Handler) CreateGroup(c *gin.Context) {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group name"})
		return
	}
	group, err := h.groupSvc.Create(req.Name, auth.GetUserID(c), req.Members)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error().Err(err).Str("creator", auth.GetUserID(c)).Str("name", req.Name).Msg("create group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create group"})
		return
	}
	c.JSON(http.StatusCreated, group)
}

// GetGroup 查询单个组。
func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.groupSvc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrGroupNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		log.Error().Err(err).Str("group_id", c.Param("id")).Msg("get group")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get group"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// ListGroups 返回调用者参与的所有组。
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.groupSvc.ListOfUser(auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Str("user_id", auth.GetUserID(c)).Msg("list groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// AddGroupMember 拉人入组。
func (h *Handler) AddGroupMember(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
		return
	}
	if err := h.groupSvc.AddMember(c.Param("id"), req.UserID); err != nil {
		h.groupMemberError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// RemoveGroupMember 把成员移出组。
func (h *Handler) RemoveGroupMember(c *gin.Context) {
	if err := h.groupSvc.RemoveMember(c.Param("id"), c.Param("userId")); err != nil {
		h.groupMemberError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) groupMemberError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		log.Error().Err(err).Str("group_id", c.Param("id")).Msg("group membership")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update group"})
	}
}

// CreateMeeting 创建会议。
func (h *Handler) CreateMeeting(c *gin.Context) {
	var req struct {
		MeetingName string   `json:"meetingName"`
		Members     []string `json:"members"`
		GroupID     string   `json:"groupId"`
		IsPublic    bool     `json:"isPublic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.MeetingName = strings.TrimSpace(req.MeetingName)
	if req.MeetingName == "" || len(req.MeetingName) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting name"})
		return
	}
	meeting, err := h.meetingSvc.Create(c.Request.Context(), req.MeetingName, auth.GetUserID(c), req.Members, req.GroupID, req.IsPublic)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error().Err(err).Str("creator", auth.GetUserID(c)).Str("name", req.MeetingName).Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create meeting"})
		return
	}
	c.JSON(http.StatusCreated, meeting)
}

// GetMeeting 查询会议。先判存在（404），再判权限（403）。
func (h *Handler) GetMeeting(c *gin.Context) {
	meetingID := c.Param("id")
	if err := h.meetingSvc.AuthorizeRead(c.Request.Context(), meetingID, auth.GetUserID(c)); err != nil {
		h.meetingAccessError(c, meetingID, err)
		return
	}
	meeting, err := h.meetingSvc.Get(c.Request.Context(), meetingID)
	if err != nil {
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("get meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get meeting"})
		return
	}
	c.JSON(http.StatusOK, meeting)
}

// ListMeetings 返回调用者创建或参与的会议。
func (h *Handler) ListMeetings(c *gin.Context) {
	meetings, err := h.meetingSvc.ListOfUser(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Str("user_id", auth.GetUserID(c)).Msg("list meetings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meetings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// AddMeetingMember 拉人入会。
func (h *Handler) AddMeetingMember(c *gin.Context) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
		return
	}
	meetingID := c.Param("id")
	if err := h.meetingSvc.AuthorizeRead(c.Request.Context(), meetingID, auth.GetUserID(c)); err != nil {
		h.meetingAccessError(c, meetingID, err)
		return
	}
	if err := h.meetingSvc.AddMember(c.Request.Context(), meetingID, req.UserID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("add meeting member")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update meeting"})
		return
	}
	c.Status(http.StatusOK)
}

// AddChat 追加一条聊天记录，落库走后台任务。
func (h *Handler) AddChat(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing parameters"})
		return
	}
	meetingID := c.Param("id")
	if err := h.meetingSvc.AuthorizeRead(c.Request.Context(), meetingID, auth.GetUserID(c)); err != nil {
		h.meetingAccessError(c, meetingID, err)
		return
	}
	if err := h.msgSvc.Record(c.Request.Context(), meetingID, auth.GetUserID(c), req.Message, time.Now()); err != nil {
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("add chat")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add chat message"})
		return
	}
	c.Status(http.StatusOK)
}

// ListChat 查询会议聊天记录。
func (h *Handler) ListChat(c *gin.Context) {
	meetingID := c.Param("id")
	if err := h.meetingSvc.AuthorizeRead(c.Request.Context(), meetingID, auth.GetUserID(c)); err != nil {
		h.meetingAccessError(c, meetingID, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	var beforeID uint
	if bid := c.Query("before_id"); bid != "" {
		if v, err := strconv.Atoi(bid); err == nil && v > 0 {
			beforeID = uint(v)
		}
	}
	msgs, err := h.msgSvc.ListByMeeting(c.Request.Context(), meetingID, limit, beforeID)
	if err != nil {
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("list chat")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chat messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) meetingAccessError(c *gin.Context, meetingID string, err error) {
	switch {
	case errors.Is(err, service.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		log.Error().Err(err).Str("meeting_id", meetingID).Msg("meeting access")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get meeting"})
	}
}
