// File: internal/workout/search.go
package workout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitcoach_backend/internal/platform/elasticsearch"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IndexName is the Elasticsearch index holding workout documents.
const IndexName = "workouts"

// ErrSearchUnavailable is returned by an Index that cannot answer queries.
var ErrSearchUnavailable = errors.New("workout search index unavailable")

// Index keeps a searchable copy of active workouts.
type Index interface {
	Put(ctx context.Context, w *Workout) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search returns matching workout ids, best match first.
	Search(ctx context.Context, trainerID uuid.UUID, q string, limit int) ([]uuid.UUID, error)
}

// NopIndex is used when no search cluster is configured.
type NopIndex struct{}

func (NopIndex) Put(context.Context, *Workout) error     { return nil }
func (NopIndex) Delete(context.Context, uuid.UUID) error { return nil }
func (NopIndex) Search(context.Context, uuid.UUID, string, int) ([]uuid.UUID, error) {
	return nil, ErrSearchUnavailable
}

// Mapping is the workouts index definition.
func Mapping() elasticsearch.Mapping {
	keyword := map[string]interface{}{"type": "keyword"}
	text := map[string]interface{}{"type": "text"}
	return elasticsearch.Mapping{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"trainer_id":     keyword,
				"student_id":     keyword,
				"name":           map[string]interface{}{"type": "text", "fields": map[string]interface{}{"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256}}},
				"slug":           keyword,
				"description":    text,
				"exercise_names": text,
				"muscle_groups":  keyword,
				"equipment":      keyword,
				"active":         map[string]interface{}{"type": "boolean"},
				"updated_at":     map[string]interface{}{"type": "date"},
			},
		},
	}
}

// ESIndex stores workouts in Elasticsearch.
type ESIndex struct {
	client *elasticsearch.ESClientWrapper
	logger *zap.Logger
}

// NewESIndex wraps client.
func NewESIndex(client *elasticsearch.ESClientWrapper, logger *zap.Logger) *ESIndex {
	return &ESIndex{client: client, logger: logger.Named("WorkoutIndex")}
}

type document struct {
	TrainerID     string    `json:"trainer_id"`
	StudentID     string    `json:"student_id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description,omitempty"`
	ExerciseNames []string  `json:"exercise_names"`
	MuscleGroups  []string  `json:"muscle_groups,omitempty"`
	Equipment     []string  `json:"equipment,omitempty"`
	Active        bool      `json:"active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toDocument(w *Workout) document {
	d := document{
		TrainerID: w.TrainerID.String(),
		StudentID: w.StudentID.String(),
		Name:      w.Name,
		Slug:      w.Slug,
		Active:    w.Active,
		UpdatedAt: w.UpdatedAt,
	}
	if w.Description != nil {
		d.Description = *w.Description
	}
	for _, e := range w.Exercises {
		d.ExerciseNames = append(d.ExerciseNames, e.Name)
		d.MuscleGroups = append(d.MuscleGroups, e.MuscleGroups...)
		d.Equipment = append(d.Equipment, e.Equipment...)
	}
	return d
}

func (x *ESIndex) Put(ctx context.Context, w *Workout) error {
	body, err := json.Marshal(toDocument(w))
	if err != nil {
		return fmt.Errorf("marshal workout document: %w", err)
	}
	res, err := esapi.IndexRequest{
		Index:      IndexName,
		DocumentID: w.ID.String(),
		Body:       strings.NewReader(string(body)),
	}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("index workout %s: %w", w.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index workout %s: %w", w.ID, elasticsearch.ResponseError(res))
	}
	return nil
}

func (x *ESIndex) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := esapi.DeleteRequest{Index: IndexName, DocumentID: id.String()}.Do(ctx, x.client.Client)
	if err != nil {
		return fmt.Errorf("delete workout document %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete workout document %s: %w", id, elasticsearch.ResponseError(res))
	}
	return nil
}

func (x *ESIndex) Search(ctx context.Context, trainerID uuid.UUID, q string, limit int) ([]uuid.UUID, error) {
	query := map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     q,
						"fields":    []string{"name^3", "exercise_names^2", "description", "muscle_groups", "equipment"},
						"fuzziness": "AUTO",
					},
				},
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"trainer_id": trainerID.String()}},
					map[string]interface{}{"term": map[string]interface{}{"active": true}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal workout query: %w", err)
	}
	res, err := esapi.SearchRequest{
		Index: []string{IndexName},
		Body:  strings.NewReader(string(body)),
	}.Do(ctx, x.client.Client)
	if err != nil {
		return nil, fmt.Errorf("search workouts: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search workouts: %w", elasticsearch.ResponseError(res))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode workout search response: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			x.logger.Warn("Skipping search hit with foreign id", zap.String("id", h.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
