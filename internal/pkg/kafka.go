package pkg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// 消费端按 event-id 去重，relayer 重试时同一条通知可能投递多次
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NotificationProducer 把发件箱里的通知写入 kafka，key 是接收人 id
type NotificationProducer struct {
	writer *kafka.Writer
}

func NewNotificationProducer(cfg KafkaConfig) (*NotificationProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, errors.New("kafka brokers and topic are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
	return &NotificationProducer{writer: w}, nil
}

func (p *NotificationProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// Deliver 同步写入，返回前 broker 已确认
func (p *NotificationProducer) Deliver(ctx context.Context, n Delivery) error {
	return p.writer.WriteMessages(ctx, n.Message())
}

// Delivery 一条待投递的通知
type Delivery struct {
	EventID   string
	EventType string
	Recipient uint64
	Payload   []byte
}

// Message 同一个接收人的消息落到同一分区，保证顺序
func (d Delivery) Message() kafka.Message {
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(d.Recipient, 10)),
		Value: d.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(d.EventID)},
			{Key: HeaderEventType, Value: []byte(d.EventType)},
		},
	}
}
