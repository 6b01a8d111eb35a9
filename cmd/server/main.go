package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/NissimBet/meetmylog-back/internal/cache"
	"github.com/NissimBet/meetmylog-back/internal/config"
	"github.com/NissimBet/meetmylog-back/internal/db"
	clog "github.com/NissimBet/meetmylog-back/internal/log"
	"github.com/NissimBet/meetmylog-back/internal/queue"
	"github.com/NissimBet/meetmylog-back/internal/server"
	"github.com/NissimBet/meetmylog-back/internal/service"
	"github.com/NissimBet/meetmylog-back/internal/ws"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// 加载 .env（若存在）、配置与日志，连接外部依赖并启动 Gin 服务。
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file")
	}
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validate")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	// 会议查询缓存。Redis 不可用时降级为纯数据库路径。
	var meetingCache cache.Cache
	if rc, err := cache.NewRedis(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, meeting cache disabled")
	} else {
		meetingCache = rc
		defer rc.Close()
	}

	qc, err := queue.NewAsynqClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("queue client")
	}
	defer qc.Close()

	userSvc := service.NewUserService(gdb, cfg)
	groupSvc := service.NewGroupService(gdb)
	meetingSvc := service.NewMeetingService(gdb, meetingCache)
	msgSvc := service.NewMessageService(gdb, qc)

	// 聊天落库 worker 与 HTTP 服务同进程运行。
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	qs, err := queue.NewAsynqServer(cfg.RedisURL, 10)
	if err != nil {
		log.Fatal().Err(err).Msg("queue server")
	}
	service.RegisterChatAppendHandler(qs, gdb)
	go func() {
		if err := qs.Run(ctx); err != nil {
			log.Error().Err(err).Msg("queue server run")
		}
	}()

	hub := ws.NewHub()
	h := server.NewHandler(cfg, userSvc, groupSvc, meetingSvc, msgSvc)
	r := server.SetupRouter(cfg, h, hub, meetingSvc, msgSvc)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
