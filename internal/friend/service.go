package friend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arc_community_backend/internal/activity"
	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	SendRequest(ctx context.Context, fromID uuid.UUID, username string) (*Friendship, error)
	Accept(ctx context.Context, userID, friendshipID uuid.UUID) (*Friendship, error)
	Decline(ctx context.Context, userID, friendshipID uuid.UUID) error
	Remove(ctx context.Context, userID, otherID uuid.UUID) error
	Overview(ctx context.Context, userID uuid.UUID) (*Overview, error)
}

type ServiceImplementation struct {
	repo     Repository
	users    shared.UserDirectory
	notifier shared.Notifier
	activity shared.ActivityRecorder
	logger   *zap.Logger
}

func NewService(repo Repository, users shared.UserDirectory, notifier shared.Notifier, recorder shared.ActivityRecorder, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		users:    users,
		notifier: notifier,
		activity: recorder,
		logger:   logger.Named("FriendService"),
	}
}

// SendRequest creates a pending request addressed by username.
func (s *ServiceImplementation) SendRequest(ctx context.Context, fromID uuid.UUID, username string) (*Friendship, error) {
	target, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if target.ID == fromID {
		return nil, common.ErrBadRequest.WithDetails("You cannot add yourself as a friend.")
	}

	if existing, err := s.repo.FindPair(ctx, fromID, target.ID); err == nil {
		if existing.Status == StatusAccepted {
			return nil, common.ErrConflict.WithDetails("You are already friends.")
		}
		return nil, common.ErrConflict.WithDetails("A friend request between you already exists.")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	f := &Friendship{RequesterID: fromID, AddresseeID: target.ID, Status: StatusPending}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}

	sender, _ := s.users.GetUserByID(ctx, fromID)
	name := "Someone"
	if sender != nil {
		name = sender.Username
	}
	if err := s.notifier.Notify(ctx, shared.NotificationInput{
		UserID:   target.ID,
		SenderID: &fromID,
		Type:     "friend_request",
		Title:    "New friend request",
		Message:  fmt.Sprintf("%s wants to be your friend.", name),
		View:     "friends",
		Tab:      "requests",
	}); err != nil {
		s.logger.Warn("Failed to notify friend request", zap.Error(err), zap.String("friendshipID", f.ID.String()))
	}
	return f, nil
}

func (s *ServiceImplementation) pendingFor(ctx context.Context, userID, friendshipID uuid.UUID) (*Friendship, error) {
	f, err := s.repo.FindByID(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if f.AddresseeID != userID {
		return nil, common.ErrForbidden.WithDetails("Only the receiver can answer a friend request.")
	}
	if f.Status != StatusPending {
		return nil, common.ErrConflict.WithDetails("This friend request was already answered.")
	}
	return f, nil
}

// Accept is only allowed for the addressee of a pending request.
func (s *ServiceImplementation) Accept(ctx context.Context, userID, friendshipID uuid.UUID) (*Friendship, error) {
	f, err := s.pendingFor(ctx, userID, friendshipID)
	if err != nil {
		return nil, err
	}
	f.Status = StatusAccepted
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}

	summaries, _ := s.users.GetSummaries(ctx, []uuid.UUID{f.RequesterID, f.AddresseeID})
	for _, pair := range [][2]uuid.UUID{{f.RequesterID, f.AddresseeID}, {f.AddresseeID, f.RequesterID}} {
		ref := f.ID
		s.activity.Record(ctx, shared.ActivityEntry{
			UserID:  pair[0],
			Kind:    activity.KindFriendAdded,
			Summary: fmt.Sprintf("became friends with %s", summaries[pair[1]].Username),
			RefType: "user",
			RefID:   &ref,
		})
	}
	return f, nil
}

// Decline deletes the pending request.
func (s *ServiceImplementation) Decline(ctx context.Context, userID, friendshipID uuid.UUID) error {
	f, err := s.pendingFor(ctx, userID, friendshipID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, f.ID)
}

// Remove deletes the relation with otherID from either side. It also
// cancels an outgoing pending request.
func (s *ServiceImplementation) Remove(ctx context.Context, userID, otherID uuid.UUID) error {
	f, err := s.repo.FindPair(ctx, userID, otherID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, f.ID)
}

func (s *ServiceImplementation) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].Other(userID))
	}
	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := &Overview{Friends: []Entry{}, Incoming: []Entry{}, Outgoing: []Entry{}}
	for i := range rows {
		f := &rows[i]
		other := f.Other(userID)
		sum, ok := summaries[other]
		if !ok {
			sum = shared.UserSummary{ID: other}
		}
		e := Entry{FriendshipID: f.ID, User: sum, Status: f.Status, Since: f.UpdatedAt.UTC().Format(time.RFC3339)}
		switch {
		case f.Status == StatusAccepted:
			out.Friends = append(out.Friends, e)
		case f.AddresseeID == userID:
			out.Incoming = append(out.Incoming, e)
		default:
			out.Outgoing = append(out.Outgoing, e)
		}
	}
	return out, nil
}
