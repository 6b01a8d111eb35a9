package server

import (
	"net/http"
	"time"

	"github.com/NissimBet/meetmylog-back/internal/auth"
	"github.com/NissimBet/meetmylog-back/internal/config"
	"github.com/NissimBet/meetmylog-back/internal/metrics"
	"github.com/NissimBet/meetmylog-back/internal/mw"
	"github.com/NissimBet/meetmylog-back/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 与 WebSocket 端点。
func SetupRouter(cfg config.Config, h *Handler, hub *ws.Hub, gate ws.MeetingGate, recorder ws.ChatRecorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.ClientURL))
	// 控制单个 IP+路由的速率，防止接口被刷爆。
	r.Use(mw.RateLimit(rate.Every(time.Second/20), 40))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/token", h.ValidateToken)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.Middleware(cfg))

	authed.GET("/users/:id", h.GetUser)

	authed.POST("/groups", h.CreateGroup)
	authed.GET("/groups", h.ListGroups)
	authed.GET("/groups/:id", h.GetGroup)
	authed.POST("/groups/:id/members", h.AddGroupMember)
	authed.DELETE("/groups/:id/members/:userId", h.RemoveGroupMember)

	authed.POST("/meetings", h.CreateMeeting)
	authed.GET("/meetings", h.ListMeetings)
	authed.GET("/meetings/:id", h.GetMeeting)
	authed.POST("/meetings/:id/members", h.AddMeetingMember)
	authed.POST("/meetings/:id/chat", h.AddChat)
	authed.GET("/meetings/:id/chat", h.ListChat)

	r.GET("/ws", ws.Serve(hub, cfg, gate, recorder))

	return r
}
