// File: internal/platform/elasticsearch/index.go
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Mapping is an index body: {"mappings": {"properties": ...}}.
type Mapping map[string]interface{}

// CreateIndexIfNotExists creates index with mapping unless it already exists.
func CreateIndexIfNotExists(ctx context.Context, client *ESClientWrapper, index string, mapping Mapping, logger *zap.Logger) error {
	log := logger.Named("elasticsearch_index_setup").With(zap.String("index_name", index))

	res, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", index, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		log.Info("Index already exists")
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index %s: status %s", index, res.Status())
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal %s mapping: %w", index, err)
	}
	createRes, err := esapi.IndicesCreateRequest{Index: index, Body: strings.NewReader(string(body))}.Do(ctx, client.Client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		err := ResponseError(createRes)
		log.Error("Failed to create index", zap.Error(err))
		return fmt.Errorf("create index %s: %w", index, err)
	}

	log.Info("Index created")
	return nil
}
