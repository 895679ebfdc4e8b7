package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Document is one source document addressed by id.
type Document struct {
	ID   string
	Body string
}

// BulkResult counts the outcome of a bulk request.
type BulkResult struct {
	Synced int
	Failed int
}

// EnsureIndex creates the index with mapping if it does not already exist.
func EnsureIndex(ctx context.Context, client *ESClientWrapper, name string, mapping map[string]interface{}, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup")

	res, err := esapi.IndicesExistsRequest{Index: []string{name}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error checking if index %s exists: %w", name, err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		log.Info("Index already exists", zap.String("index_name", name))
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("error checking if index %s exists: status %s", name, res.Status())
	}

	body, err := json.Marshal(map[string]interface{}{"mappings": mapping})
	if err != nil {
		return fmt.Errorf("error marshalling %s mapping to JSON: %w", name, err)
	}

	createRes, err := esapi.IndicesCreateRequest{Index: name, Body: bytes.NewReader(body)}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("error creating index %s: %w", name, err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		var errorBody map[string]interface{}
		if err := decodeJSONResponse(createRes.Body, &errorBody); err == nil {
			log.Error("Failed to create index", zap.String("status", createRes.Status()), zap.Any("error_details", errorBody), zap.String("index_name", name))
		}
		return fmt.Errorf("failed to create index %s: status %s", name, createRes.Status())
	}

	log.Info("Index created successfully", zap.String("index_name", name))
	return nil
}

// IndexDocument writes one document.
func IndexDocument(ctx context.Context, client *ESClientWrapper, index string, doc Document, refresh string) error {
	res, err := esapi.IndexRequest{
		Index:      index,
		DocumentID: doc.ID,
		Body:       strings.NewReader(doc.Body),
		Refresh:    refresh,
	}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("index request for %s failed: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index request for %s failed: status %s", doc.ID, res.Status())
	}
	return nil
}

// DeleteDocument removes one document. A missing document is not an error.
func DeleteDocument(ctx context.Context, client *ESClientWrapper, index, id string) error {
	res, err := esapi.DeleteRequest{Index: index, DocumentID: id}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("delete request for %s failed: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete request for %s failed: status %s", id, res.Status())
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string                 `json:"_id"`
		Status int                    `json:"status"`
		Error  map[string]interface{} `json:"error,omitempty"`
	} `json:"items"`
}

// BulkIndex sends docs in one bulk request and counts item-level failures.
func BulkIndex(ctx context.Context, client *ESClientWrapper, index string, docs []Document, refresh string, logger *zap.Logger) (BulkResult, error) {
	var result BulkResult
	if len(docs) == 0 {
		return result, nil
	}

	var body strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&body, `{ "index" : { "_index" : %q, "_id" : %q } }`+"\n", index, d.ID)
		body.WriteString(d.Body)
		body.WriteString("\n")
	}

	res, err := esapi.BulkRequest{Body: strings.NewReader(body.String()), Refresh: refresh}.Do(ctx, client.Client)
	if err != nil {
		return BulkResult{Failed: len(docs)}, fmt.Errorf("bulk request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		logger.Error("Elasticsearch bulk request returned an error", zap.String("status", res.Status()))
		return BulkResult{Failed: len(docs)}, fmt.Errorf("bulk request failed: status %s", res.Status())
	}

	var parsed bulkResponse
	if err := decodeJSONResponse(res.Body, &parsed); err != nil {
		return BulkResult{Failed: len(docs)}, err
	}
	for _, item := range parsed.Items {
		for _, op := range item {
			if op.Error != nil {
				logger.Error("Failed to index document in bulk batch",
					zap.String("id", op.ID),
					zap.Any("error", op.Error),
					zap.Int("status", op.Status),
				)
				result.Failed++
			} else {
				result.Synced++
			}
		}
	}
	return result, nil
}
