package service

import (
	"context"
	"encoding/json"
	"time"

	apperr "Lee_Library/internal/errors"
	"Lee_Library/internal/metrics"
	"Lee_Library/internal/model"
	"Lee_Library/internal/repository/mysql"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event 一次需要通知的业务事件
type Event struct {
	Type        string
	ActorID     uint64
	ActorName   string
	CommunityID uint64
	// RecipientID 帖子作者、被任免的用户或被拒稿的作者
	RecipientID uint64
	// TargetName 广播文案里的名字：被任免用户名
	TargetName string
	RelatedID  *uint64
}

// Emission 同一条通知文案发给一组接收者
type Emission struct {
	Recipients []uint64
	Record     model.Notification
}

// Message 投递到外部通道的通知内容，即 outbox 的 payload
type Message struct {
	EventID         string    `json:"event_id"`
	NotificationID  uint64    `json:"notification_id"`
	Recipient       uint64    `json:"recipient"`
	Type            string    `json:"type"`
	ActorID         uint64    `json:"actor_id"`
	ActorName       string    `json:"actor_name"`
	Message         string    `json:"message"`
	RelatedEntityID *uint64   `json:"related_entity_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// needsMembers 这些事件要在发出时解析社区当前成员
func needsMembers(eventType string) bool {
	switch eventType {
	case model.NotifyPostCreated, model.NotifyModeratorAssigned, model.NotifyModeratorRemoved:
		return true
	}
	return false
}

// Emit 根据事件和社区当前成员计算通知。不访问存储
func Emit(ev Event, members []uint64) []Emission {
	record := func(notifyType, msg string) model.Notification {
		return model.Notification{
			ActorID:         ev.ActorID,
			ActorName:       ev.ActorName,
			Type:            notifyType,
			Message:         msg,
			RelatedEntityID: ev.RelatedID,
		}
	}
	one := func(to uint64, notifyType, msg string) Emission {
		return Emission{Recipients: []uint64{to}, Record: record(notifyType, msg)}
	}

	switch ev.Type {
	case model.NotifyPostLike, model.NotifyPostUnlike, model.NotifyPostComment, model.NotifyPostShare:
		if ev.ActorID == ev.RecipientID {
			return nil
		}
		verb := map[string]string{
			model.NotifyPostLike:    "liked",
			model.NotifyPostUnlike:  "unliked",
			model.NotifyPostComment: "commented on",
			model.NotifyPostShare:   "shared",
		}[ev.Type]
		return []Emission{one(ev.RecipientID, ev.Type, ev.ActorName+" "+verb+" your post!")}

	case model.NotifyPostRejected:
		return []Emission{one(ev.RecipientID, ev.Type, "Your post was rejected due to inappropriate content.")}

	case model.NotifyCommentRejected:
		return []Emission{one(ev.RecipientID, ev.Type, "Your comment was rejected due to inappropriate content.")}

	case model.NotifyPostCreated:
		out := []Emission{one(ev.RecipientID, model.NotifyPostAccepted,
			"Your post has been accepted and published in the community.")}
		if others := without(members, ev.ActorID); len(others) > 0 {
			out = append(out, Emission{
				Recipients: others,
				Record:     record(model.NotifyPostCreated, ev.ActorName+" added a new post to the community!"),
			})
		}
		return out

	case model.NotifyModeratorAssigned, model.NotifyModeratorRemoved:
		self, broadcast := "You have been assigned as a moderator in the community!",
			ev.TargetName+" has been assigned as a moderator in the community!"
		if ev.Type == model.NotifyModeratorRemoved {
			self, broadcast = "You have been removed as a moderator from the community!",
				ev.TargetName+" has been removed as a moderator from the community!"
		}
		out := []Emission{one(ev.RecipientID, ev.Type, self)}
		if others := without(members, ev.ActorID, ev.RecipientID); len(others) > 0 {
			out = append(out, Emission{Recipients: others, Record: record(ev.Type, broadcast)})
		}
		return out
	}
	return nil
}

func without(ids []uint64, skip ...uint64) []uint64 {
	var out []uint64
next:
	for _, id := range ids {
		for _, s := range skip {
			if id == s {
				continue next
			}
		}
		out = append(out, id)
	}
	return out
}

// Notifier 把通知和对应的 outbox 记录写在同一个事务里，外部投递交给 OutboxRelayer
type Notifier struct {
	gw  *mysql.Gateway
	log *logrus.Logger
}

func NewNotifier(gw *mysql.Gateway, log *logrus.Logger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{gw: gw, log: log}
}

func (n *Notifier) Publish(ctx context.Context, ev Event) ([]Emission, error) {
	uow := n.gw.Begin(ctx)
	defer uow.Rollback()

	var members []uint64
	if needsMembers(ev.Type) {
		rows, err := mysql.For[model.CommunityMember](uow).Query(mysql.MembersOf(ev.CommunityID))
		if err != nil {
			return nil, storeErr("resolve recipients", err)
		}
		members = make([]uint64, len(rows))
		for i, m := range rows {
			members[i] = m.UserID
		}
	}

	emissions := Emit(ev, members)
	if len(emissions) == 0 {
		return nil, nil
	}

	notifications := mysql.For[model.Notification](uow)
	outbox := mysql.For[model.NotificationOutbox](uow)
	for _, e := range emissions {
		for _, to := range e.Recipients {
			rec := e.Record
			rec.UserID = to
			if err := notifications.Add(&rec); err != nil {
				return nil, storeErr("save notification", err)
			}
			msg := Message{
				EventID:         uuid.NewString(),
				NotificationID:  rec.ID,
				Recipient:       to,
				Type:            rec.Type,
				ActorID:         rec.ActorID,
				ActorName:       rec.ActorName,
				Message:         rec.Message,
				RelatedEntityID: rec.RelatedEntityID,
				CreatedAt:       rec.CreatedAt,
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				return nil, apperr.Internal("encode notification", err)
			}
			if err = outbox.Add(&model.NotificationOutbox{
				EventID:        msg.EventID,
				NotificationID: rec.ID,
				Recipient:      to,
				EventType:      rec.Type,
				Payload:        string(payload),
				Status:         model.OutboxPending,
			}); err != nil {
				return nil, storeErr("enqueue notification", err)
			}
		}
	}
	if err := commit(uow, "publish notification"); err != nil {
		return nil, err
	}

	for _, e := range emissions {
		metrics.ObserveNotification(e.Record.Type, len(e.Recipients))
	}
	n.log.WithFields(logrus.Fields{"type": ev.Type, "actor": ev.ActorID}).Debug("notifications published")
	return emissions, nil
}

// Latest 用户最近的通知，新的在前
func (n *Notifier) Latest(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := mysql.For[model.Notification](n.gw.Begin(ctx)).Query(mysql.NotificationsFor(userID).Page(0, limit))
	if err != nil {
		return nil, storeErr("list notifications", err)
	}
	return list, nil
}

// MarkRead 只能标记自己的通知；别人的通知按不存在处理
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uint64) error {
	uow := n.gw.Begin(ctx)
	defer uow.Rollback()

	notifications := mysql.For[model.Notification](uow)
	rec, err := getOr404(notifications, notificationID, "notification")
	if err != nil {
		return err
	}
	if rec.UserID != userID {
		return apperr.NotFound("notification not found")
	}
	if rec.IsRead {
		return nil
	}
	rec.IsRead = true
	if err = notifications.Update(rec); err != nil {
		return storeErr("mark notification read", err)
	}
	return commit(uow, "mark notification read")
}
