package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Lee_Library/internal/config"
	"Lee_Library/internal/handler"
	"Lee_Library/internal/logger"
	"Lee_Library/internal/middleware"
	"Lee_Library/internal/model"
	"Lee_Library/internal/pkg"
	"Lee_Library/internal/repository/mysql"
	"Lee_Library/internal/repository/redis"
	"Lee_Library/internal/router"
	"Lee_Library/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := mysql.InitDB(cfg.MySQL.DSN)
	if err != nil {
		log.WithError(err).Fatal("connect mysql")
	}
	// 自动建表（开发阶段 OK）
	if cfg.MySQL.AutoMigrate {
		if err = mysql.AutoMigrate(db); err != nil {
			log.WithError(err).Fatal("auto migrate")
		}
	}
	gw := mysql.NewGateway(db)

	deps := service.Deps{
		Gateway: gw,
		Users:   mysql.NewUserRepository(gw),
		Logger:  log,
	}
	if cfg.Moderation.Endpoint != "" {
		deps.Moderator = pkg.NewModerationClient(cfg.Moderation.Endpoint, cfg.Moderation.APIKey, nil)
	} else {
		log.Warn("MODERATION_ENDPOINT not set, all content is accepted")
	}
	deps.Notifier = service.NewNotifier(gw, log)

	senders := []service.Sender{service.LogSender(log)}
	var publisher *redis.NotifyPublisher

	// 连接redis
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer rdb.Close()
		deps.LikeCache = redis.NewLikeCacheRepository(rdb)
		deps.Lock = &redis.DistLock{RDB: rdb}
		publisher = &redis.NotifyPublisher{RDB: rdb}
		senders = append(senders, service.RedisSender(publisher))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := pkg.NewNotificationProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			log.WithError(err).Fatal("kafka producer")
		}
		defer producer.Close()
		senders = append(senders, service.KafkaSender(producer))
	}

	if cfg.SMTP.Host != "" {
		smtp := pkg.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
		senders = append(senders, service.EmailSender(deps.Users, smtp, nil,
			model.NotifyPostRejected,
			model.NotifyCommentRejected,
			model.NotifyModeratorAssigned,
			model.NotifyModeratorRemoved,
		))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayer := service.NewOutboxRelayer(mysql.NewOutboxRepository(gw), service.MultiSender(senders...), log,
		service.WithBatchSize(cfg.Outbox.BatchSize),
		service.WithInterval(cfg.Outbox.Interval),
		service.WithMaxRetry(cfg.Outbox.MaxRetry),
	)
	go relayer.Run(ctx)
	go service.NewCountReconciler(gw, log).Run(ctx)

	r := router.InitRouter(router.Options{
		Verifier:     pkg.NewTokenVerifier([]byte(cfg.JWT.AccessSecret)),
		Limiter:      middleware.NewKeyedLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Logger:       log,
		Community:    handler.NewCommunityHandler(service.NewCommunityService(deps), log),
		Post:         handler.NewPostHandler(service.NewPostService(deps), log),
		PostLike:     handler.NewPostLikeHandler(service.NewPostLikeService(deps), log),
		Notification: handler.NewNotificationHandler(deps.Notifier, publisher, log),
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
}
