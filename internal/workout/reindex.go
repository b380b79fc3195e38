// File: internal/workout/reindex.go
package workout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fitcoach_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// ReindexResult counts documents sent by Reindex.
type ReindexResult struct {
	Synced  int
	Failed  int
	Batches int
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string                 `json:"_id"`
			Status int                    `json:"status"`
			Error  map[string]interface{} `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

// Reindex copies every active workout into the search index with the bulk API. refresh is passed
// through as the bulk refresh policy ("true", "false" or "wait_for").
func Reindex(ctx context.Context, repo Repository, client *elasticsearch.ESClientWrapper, batchSize int, refresh string, logger *zap.Logger) (ReindexResult, error) {
	var result ReindexResult
	if batchSize <= 0 {
		batchSize = 100
	}
	logger = logger.Named("WorkoutReindex")

	for offset := 0; ; {
		workouts, err := repo.FindActiveBatch(ctx, offset, batchSize)
		if err != nil {
			return result, fmt.Errorf("fetch batch at offset %d: %w", offset, err)
		}
		if len(workouts) == 0 {
			break
		}
		result.Batches++

		var body strings.Builder
		for i := range workouts {
			doc, err := json.Marshal(toDocument(&workouts[i]))
			if err != nil {
				logger.Error("Failed to encode workout document", zap.String("workoutID", workouts[i].ID.String()), zap.Error(err))
				result.Failed++
				continue
			}
			fmt.Fprintf(&body, `{"index":{"_index":%q,"_id":%q}}`+"\n", IndexName, workouts[i].ID.String())
			body.Write(doc)
			body.WriteString("\n")
		}
		offset += len(workouts)
		if body.Len() == 0 {
			continue
		}

		synced, failed := sendBulk(ctx, client, body.String(), refresh, len(workouts), logger)
		result.Synced += synced
		result.Failed += failed
		logger.Info("Batch processed", zap.Int("batch", result.Batches), zap.Int("synced", synced), zap.Int("failed", failed))
	}

	logger.Info("Workout reindex finished", zap.Int("synced", result.Synced), zap.Int("failed", result.Failed))
	if result.Failed > 0 {
		return result, fmt.Errorf("%d workouts failed to index", result.Failed)
	}
	return result, nil
}

// sendBulk returns the synced and failed item counts. A failed request counts the whole batch.
func sendBulk(ctx context.Context, client *elasticsearch.ESClientWrapper, body, refresh string, size int, logger *zap.Logger) (int, int) {
	res, err := esapi.BulkRequest{Body: strings.NewReader(body), Refresh: refresh}.Do(ctx, client.Client)
	if err != nil {
		logger.Error("Bulk request failed", zap.Error(err))
		return 0, size
	}
	defer res.Body.Close()
	if res.IsError() {
		logger.Error("Bulk request rejected", zap.String("status", res.Status()), zap.Error(elasticsearch.ResponseError(res)))
		return 0, size
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		logger.Error("Failed to parse bulk response", zap.Error(err))
		return 0, size
	}
	synced, failed := 0, 0
	for _, item := range parsed.Items {
		if item.Index.Error != nil {
			logger.Warn("Workout not indexed", zap.String("workoutID", item.Index.ID),
				zap.Int("status", item.Index.Status), zap.Any("error", item.Index.Error))
			failed++
			continue
		}
		synced++
	}
	return synced, failed
}
