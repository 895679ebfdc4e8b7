// Package esutil mirrors catalog entries into Elasticsearch.
package esutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"arc_community_backend/internal/catalog"
	platformElasticsearch "arc_community_backend/internal/platform/elasticsearch"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogIndexName is the index holding catalog documents.
const CatalogIndexName = "catalog"

// CatalogMapping is the mapping used when the index is created.
func CatalogMapping() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	return map[string]interface{}{
		"properties": map[string]interface{}{
			"kind":        keyword,
			"slug":        keyword,
			"rarity":      keyword,
			"category":    keyword,
			"name":        map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}},
			"description": map[string]interface{}{"type": "text"},
			"value":       map[string]interface{}{"type": "integer"},
			"stats":       map[string]interface{}{"type": "object", "enabled": false},
			"created_at":  map[string]interface{}{"type": "date"},
			"updated_at":  map[string]interface{}{"type": "date"},
		},
	}
}

// EntryToElasticsearchDoc converts an entry to its Elasticsearch document.
func EntryToElasticsearchDoc(e *catalog.Entry) (string, error) {
	if e == nil {
		return "", errors.New("entry cannot be nil")
	}

	doc := map[string]interface{}{
		"kind":        e.Kind,
		"name":        e.Name,
		"slug":        e.Slug,
		"rarity":      e.Rarity,
		"category":    e.Category,
		"description": e.Description,
		"value":       e.Value,
		"created_at":  e.CreatedAt,
		"updated_at":  e.UpdatedAt,
	}
	if e.ImageURL != nil {
		doc["image_url"] = *e.ImageURL
	}
	if len(e.Stats) > 0 {
		doc["stats"] = json.RawMessage(e.Stats)
	}

	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("error marshalling entry to JSON for ES: %w", err)
	}
	return string(docBytes), nil
}

// Indexer implements catalog.Indexer against Elasticsearch.
type Indexer struct {
	client *platformElasticsearch.ESClientWrapper
	logger *zap.Logger
}

// NewIndexer returns nil when search is not configured.
func NewIndexer(client *platformElasticsearch.ESClientWrapper, logger *zap.Logger) catalog.Indexer {
	if client == nil {
		return nil
	}
	return &Indexer{client: client, logger: logger.Named("CatalogIndexer")}
}

func (i *Indexer) Index(ctx context.Context, e *catalog.Entry) error {
	body, err := EntryToElasticsearchDoc(e)
	if err != nil {
		return err
	}
	return platformElasticsearch.IndexDocument(ctx, i.client, CatalogIndexName, platformElasticsearch.Document{ID: e.ID.String(), Body: body}, "false")
}

func (i *Indexer) Remove(ctx context.Context, id uuid.UUID) error {
	return platformElasticsearch.DeleteDocument(ctx, i.client, CatalogIndexName, id.String())
}

// SyncCatalog reindexes every entry in batches of batchSize.
func SyncCatalog(ctx context.Context, repo catalog.Repository, client *platformElasticsearch.ESClientWrapper, logger *zap.Logger, batchSize int, refresh string) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if err := platformElasticsearch.EnsureIndex(ctx, client, CatalogIndexName, CatalogMapping(), logger); err != nil {
		return err
	}

	logger.Info("Starting catalog synchronization to Elasticsearch...",
		zap.Int("batchSize", batchSize),
		zap.String("esRefreshPolicy", refresh),
	)

	var totalSynced, totalFailed int
	for offset, batch := 0, 1; ; batch++ {
		entries, err := repo.FindAllForSync(ctx, offset, batchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch batch %d: %w", batch, err)
		}
		if len(entries) == 0 {
			break
		}

		docs := make([]platformElasticsearch.Document, 0, len(entries))
		for i := range entries {
			body, err := EntryToElasticsearchDoc(&entries[i])
			if err != nil {
				logger.Error("Failed to convert entry to Elasticsearch document", zap.String("entryID", entries[i].ID.String()), zap.Error(err))
				totalFailed++
				continue
			}
			docs = append(docs, platformElasticsearch.Document{ID: entries[i].ID.String(), Body: body})
		}

		res, err := platformElasticsearch.BulkIndex(ctx, client, CatalogIndexName, docs, refresh, logger)
		if err != nil {
			logger.Error("Bulk request failed", zap.Error(err), zap.Int("batchNumber", batch))
		}
		totalSynced += res.Synced
		totalFailed += res.Failed
		logger.Info("Batch processed.", zap.Int("batchNumber", batch), zap.Int("syncedInBatch", res.Synced), zap.Int("failedInBatch", res.Failed))

		offset += len(entries)
	}

	logger.Info("Catalog synchronization finished.", zap.Int("synced", totalSynced), zap.Int("failed", totalFailed))
	if totalFailed > 0 {
		return fmt.Errorf("%d catalog entries failed to sync", totalFailed)
	}
	return nil
}
