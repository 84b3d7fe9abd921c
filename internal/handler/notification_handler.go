package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"Lee_Library/internal/middleware"
	"Lee_Library/internal/repository/redis"
	"Lee_Library/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const streamHeartbeat = 30 * time.Second

type NotificationHandler struct {
	notifier *service.Notifier
	pub      *redis.NotifyPublisher
	log      *logrus.Logger
}

// NewNotificationHandler pub 为空时实时推送不可用
func NewNotificationHandler(notifier *service.Notifier, pub *redis.NotifyPublisher, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, pub: pub, log: log}
}

func (h *NotificationHandler) Latest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.notifier.Latest(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "list": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifier.MarkRead(c.Request.Context(), middleware.UserID(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "ok"})
}

// Stream SSE 推送当前用户的实时通知，数据来自 redis 的 notify:user:<id> 频道
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.pub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": 1, "msg": "realtime notifications disabled"})
		return
	}
	ctx := c.Request.Context()
	uid := middleware.UserID(c)

	sub := h.pub.Subscribe(ctx, uid)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		fail(c, h.log, err)
		return
	}
	messages := sub.Channel()
	// 长连接不受服务端 WriteTimeout 限制
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("notification", msg.Payload)
			return true
		}
	})
	h.log.WithField("user", uid).Debug("notification stream closed")
}
