package activity

import (
	"context"
	"time"

	"arc_community_backend/internal/common"
	"arc_community_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service records and lists activity.
type Service interface {
	shared.ActivityRecorder
	List(ctx context.Context, userID *uuid.UUID, page, pageSize int) ([]Response, *common.Pagination, error)
}

type ServiceImplementation struct {
	repo   Repository
	users  shared.UserDirectory
	logger *zap.Logger
}

func NewService(repo Repository, users shared.UserDirectory, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{repo: repo, users: users, logger: logger.Named("ActivityService")}
}

// Record stores an entry. Failures are logged and never reach the caller.
func (s *ServiceImplementation) Record(ctx context.Context, e shared.ActivityEntry) {
	a := &Activity{
		UserID:    e.UserID,
		Kind:      e.Kind,
		Summary:   e.Summary,
		RefType:   e.RefType,
		RefID:     e.RefID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		s.logger.Warn("Failed to record activity",
			zap.Error(err),
			zap.String("userID", e.UserID.String()),
			zap.String("kind", e.Kind))
	}
}

func (s *ServiceImplementation) List(ctx context.Context, userID *uuid.UUID, page, pageSize int) ([]Response, *common.Pagination, error) {
	items, pagination, err := s.repo.List(ctx, userID, page, pageSize)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.UserID)
	}
	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve activity users", zap.Error(err))
		summaries = nil
	}

	out := make([]Response, 0, len(items))
	for _, a := range items {
		resp := Response{Activity: a}
		if sum, ok := summaries[a.UserID]; ok {
			sum := sum
			resp.User = &sum
		}
		out = append(out, resp)
	}
	return out, pagination, nil
}
