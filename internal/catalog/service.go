// File: internal/catalog/service.go
package catalog

import (
	"context"
	"strings"

	"arc_community_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// Indexer mirrors entries into a search index. It is optional.
type Indexer interface {
	Index(ctx context.Context, e *Entry) error
	Remove(ctx context.Context, id uuid.UUID) error
}

// Service defines the interface for catalog business logic.
type Service interface {
	List(ctx context.Context, kind string, q ListQuery, page, pageSize int) ([]EntryResponse, *common.Pagination, error)
	GetBySlug(ctx context.Context, kind, slug string) (*EntryResponse, error)
	AdminCreate(ctx context.Context, req AdminCreateEntryRequest) (*EntryResponse, error)
	AdminDelete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo    Repository
	indexer Indexer
	logger  *zap.Logger
}

// NewService creates a new catalog service. indexer may be nil.
func NewService(repo Repository, indexer Indexer, logger *zap.Logger) Service {
	return &service{
		repo:    repo,
		indexer: indexer,
		logger:  logger.Named("CatalogService"),
	}
}

func (s *service) List(ctx context.Context, kind string, q ListQuery, page, pageSize int) ([]EntryResponse, *common.Pagination, error) {
	if !ValidKind(kind) {
		return nil, nil, common.ErrNotFound.WithDetails("Unknown catalog kind.")
	}
	if !ValidSort(q.Sort) {
		return nil, nil, common.ErrBadRequest.WithDetails("sort must be one of name, -name, rarity, -rarity, value, -value.")
	}

	entries, pagination, err := s.repo.List(ctx, kind, q, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list catalog entries", zap.Error(err), zap.String("kind", kind))
		return nil, nil, err
	}
	out := make([]EntryResponse, len(entries))
	for i := range entries {
		out[i] = ToEntryResponse(&entries[i])
	}
	return out, pagination, nil
}

func (s *service) GetBySlug(ctx context.Context, kind, entrySlug string) (*EntryResponse, error) {
	e, err := s.repo.FindBySlug(ctx, kind, entrySlug)
	if err != nil {
		return nil, err
	}
	resp := ToEntryResponse(e)
	return &resp, nil
}

func (s *service) AdminCreate(ctx context.Context, req AdminCreateEntryRequest) (*EntryResponse, error) {
	finalSlug := strings.TrimSpace(req.Slug)
	if finalSlug == "" {
		finalSlug = slug.Make(req.Name)
	} else {
		finalSlug = slug.Make(finalSlug)
	}
	if finalSlug == "" {
		return nil, common.ErrBadRequest.WithDetails("Could not derive a slug from the name.")
	}

	e := &Entry{
		Kind:        req.Kind,
		Name:        strings.TrimSpace(req.Name),
		Slug:        finalSlug,
		Rarity:      req.Rarity,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		ImageURL:    req.ImageURL,
		Stats:       req.Stats,
		Value:       req.Value,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		s.logger.Error("Failed to create catalog entry", zap.Error(err), zap.String("name", req.Name))
		return nil, err
	}
	s.logger.Info("Catalog entry created", zap.String("id", e.ID.String()), zap.String("kind", e.Kind), zap.String("slug", e.Slug))

	if s.indexer != nil {
		if err := s.indexer.Index(ctx, e); err != nil {
			s.logger.Warn("Failed to index catalog entry", zap.Error(err), zap.String("id", e.ID.String()))
		}
	}
	resp := ToEntryResponse(e)
	return &resp, nil
}

func (s *service) AdminDelete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			s.logger.Warn("Failed to remove catalog entry from index", zap.Error(err), zap.String("id", id.String()))
		}
	}
	return nil
}
