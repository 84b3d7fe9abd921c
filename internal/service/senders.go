package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"Lee_Library/internal/model"
	"Lee_Library/internal/pkg"
	"Lee_Library/internal/repository/redis"

	"github.com/sirupsen/logrus"
)

// LogSender 开发环境使用，只打日志
func LogSender(log *logrus.Logger) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		log.WithFields(logrus.Fields{
			"event":     ob.EventID,
			"type":      ob.EventType,
			"recipient": ob.Recipient,
		}).Info(ob.Payload)
		return nil
	}
}

// KafkaSender 以接收者 id 为 key，同一用户的通知落在同一分区
func KafkaSender(p *pkg.NotificationProducer) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		return p.Deliver(ctx, pkg.Delivery{
			EventID:   ob.EventID,
			EventType: ob.EventType,
			Recipient: ob.Recipient,
			Payload:   []byte(ob.Payload),
		})
	}
}

// RedisSender 发布到 notify:user:<id>，没有订阅者也算成功
func RedisSender(pub *redis.NotifyPublisher) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		_, err := pub.Publish(ctx, ob.Recipient, []byte(ob.Payload))
		return err
	}
}

// MailFunc 发送一封 HTML 邮件
type MailFunc func(cfg pkg.SMTPConfig, to, subject, body string) error

// EmailSender 只给 types 中的通知类型发邮件，其余直接跳过。send 为空时用 gomail
func EmailSender(users UserDirectory, cfg pkg.SMTPConfig, send MailFunc, types ...string) Sender {
	if send == nil {
		send = pkg.SendEmail
	}
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		if !slices.Contains(types, ob.EventType) {
			return nil
		}
		var msg Message
		if err := json.Unmarshal([]byte(ob.Payload), &msg); err != nil {
			return fmt.Errorf("decode outbox payload: %w", err)
		}
		user, err := users.FindUser(ctx, ob.Recipient)
		if err != nil {
			return err
		}
		if user.Email == "" {
			return nil
		}
		return send(cfg, user.Email, "Community notification", pkg.NotificationHTML(user.DisplayName(), msg.Message))
	}
}

// MultiSender 依次交给每个通道，任意一个失败整条记录重试
func MultiSender(senders ...Sender) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		var errs []error
		for _, s := range senders {
			if err := s(ctx, ob); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
