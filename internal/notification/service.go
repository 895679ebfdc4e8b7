package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/events"
	"arc_community_backend/internal/firebase"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// PushSender delivers pushes to offline users. firebase.PushService implements it.
type PushSender interface {
	Send(ctx context.Context, tokens []string, msg firebase.PushMessage) ([]string, error)
}

// ProvidePushSender adapts an optional push service. A nil service disables push.
func ProvidePushSender(svc *firebase.PushService) PushSender {
	if svc == nil {
		return nil
	}
	return svc
}

// Service defines the interface for notification business logic.
type Service interface {
	shared.Notifier
	GetNotificationsForUser(ctx context.Context, userID uuid.UUID, filter string, page, pageSize int) ([]Response, *common.Pagination, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error
	DeleteReadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	RegisterDevice(ctx context.Context, userID uuid.UUID, token string) error
}

type ServiceImplementation struct {
	repo      Repository
	users     shared.UserDirectory
	publisher events.Publisher
	push      PushSender
	logger    *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new notification service. push may be nil.
func NewService(repo Repository, users shared.UserDirectory, publisher events.Publisher, push PushSender, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:      repo,
		users:     users,
		publisher: publisher,
		push:      push,
		logger:    logger.Named("NotificationService"),
	}
}

// Notify persists the notification, then pushes it to the user's live
// sockets, or to their devices when they have none.
func (s *ServiceImplementation) Notify(ctx context.Context, in shared.NotificationInput) error {
	t := NotificationType(in.Type)
	if !t.Valid() {
		return common.ErrBadRequest.WithDetails("Unknown notification type: " + in.Type)
	}
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Message) == "" {
		return common.ErrBadRequest.WithDetails("Notification needs a title or message.")
	}

	n := &Notification{
		UserID:    in.UserID,
		SenderID:  in.SenderID,
		Type:      t,
		Title:     in.Title,
		Message:   in.Message,
		Link:      in.Link,
		CreatedAt: time.Now(),
	}
	if in.View != "" || in.Tab != "" {
		raw, err := json.Marshal(NavigationData{View: in.View, Tab: in.Tab})
		if err != nil {
			return err
		}
		n.Data = datatypes.JSON(raw)
	}

	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.Error(err), zap.String("userID", in.UserID.String()))
		return common.ErrInternalServer.WithDetails("Could not create notification.")
	}

	resp := s.withSenders(ctx, []Notification{*n})[0]
	s.publisher.SendToUser(n.UserID, toPayload(resp))

	if s.push != nil && !s.publisher.IsOnline(n.UserID) {
		s.sendPush(ctx, n)
	}
	return nil
}

func (s *ServiceImplementation) sendPush(ctx context.Context, n *Notification) {
	tokens, err := s.repo.DeviceTokens(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("Failed to load device tokens", zap.Error(err), zap.String("userID", n.UserID.String()))
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{"notification_id": n.ID.String(), "type": string(n.Type)}
	if n.Link != nil {
		data["link"] = *n.Link
	}
	stale, err := s.push.Send(ctx, tokens, firebase.PushMessage{Title: n.Title, Body: n.Message, Data: data})
	if err != nil {
		s.logger.Warn("Push notification failed", zap.Error(err), zap.String("userID", n.UserID.String()))
		return
	}
	if err := s.repo.DeleteDeviceTokens(ctx, stale); err != nil {
		s.logger.Warn("Failed to prune stale device tokens", zap.Error(err))
	}
}

func (s *ServiceImplementation) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, filter string, page, pageSize int) ([]Response, *common.Pagination, error) {
	switch filter {
	case "", FilterAll, FilterUnread:
	default:
		return nil, nil, common.ErrBadRequest.WithDetails("filter must be 'all' or 'unread'.")
	}

	items, pagination, err := s.repo.GetByUserID(ctx, userID, filter == FilterUnread, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to get notifications", zap.Error(err), zap.String("userID", userID.String()))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return s.withSenders(ctx, items), pagination, nil
}

func (s *ServiceImplementation) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *ServiceImplementation) MarkNotificationAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID)
}

func (s *ServiceImplementation) MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *ServiceImplementation) DeleteNotification(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	return s.repo.Delete(ctx, notificationID, userID)
}

func (s *ServiceImplementation) DeleteReadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteRead(ctx, userID)
}

func (s *ServiceImplementation) RegisterDevice(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return common.ErrBadRequest.WithDetails("Device token is required.")
	}
	return s.repo.SaveDeviceToken(ctx, &DeviceToken{UserID: userID, Token: token, CreatedAt: time.Now()})
}

func (s *ServiceImplementation) withSenders(ctx context.Context, items []Notification) []Response {
	var ids []uuid.UUID
	for _, n := range items {
		if n.SenderID != nil {
			ids = append(ids, *n.SenderID)
		}
	}
	var senders map[uuid.UUID]shared.UserSummary
	if len(ids) > 0 {
		var err error
		if senders, err = s.users.GetSummaries(ctx, ids); err != nil {
			s.logger.Warn("Failed to resolve notification senders", zap.Error(err))
		}
	}

	out := make([]Response, 0, len(items))
	for _, n := range items {
		resp := Response{Notification: n}
		if n.SenderID != nil {
			if sum, ok := senders[*n.SenderID]; ok {
				sum := sum
				resp.Sender = &sum
			}
		}
		out = append(out, resp)
	}
	return out
}

func toPayload(r Response) events.NotificationPayload {
	p := events.NotificationPayload{
		ID:        r.ID.String(),
		Type:      string(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Link:      r.Link,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Data) > 0 {
		p.Data = json.RawMessage(r.Data)
	}
	if r.Sender != nil {
		p.Sender = &events.SenderPayload{ID: r.Sender.ID.String(), Username: r.Sender.Username, AvatarURL: r.Sender.AvatarURL}
	}
	return p
}
