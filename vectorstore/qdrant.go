// Qdrant REST client.
//
// Information Hiding:
// - Collection and point endpoint layout
// - Payload encoding (content + metadata fields)
// - API key header handling

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/richinex/libretto/model"
)

// QdrantConfig holds connection settings for a Qdrant instance.
// PreferGRPC is accepted for config parity with deployments that enable
// the binary transport; this client always speaks REST.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	PreferGRPC bool
}

// Qdrant is a minimal REST client to one Qdrant collection.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// NewQdrant creates a client for the configured collection.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Qdrant{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

type qdrantCollectionResponse struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
		PointsCount int `json:"points_count"`
	} `json:"result"`
}

// EnsureCollection creates the collection if absent, else verifies that the
// existing configuration is compatible.
func (q *Qdrant) EnsureCollection(ctx context.Context, vectorSize int, distance string) error {
	if vectorSize <= 0 {
		return fmt.Errorf("%w: invalid vector size %d", ErrStore, vectorSize)
	}

	info, err := q.CollectionInfo(ctx)
	if err == nil {
		if info.VectorSize != vectorSize || info.Distance != distance {
			return fmt.Errorf("%w: collection %q has size=%d distance=%s, want size=%d distance=%s",
				ErrIncompatibleCollection, q.collection, info.VectorSize, info.Distance, vectorSize, distance)
		}
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": distance,
		},
	}
	return q.do(ctx, http.MethodPut, q.collectionPath(""), body, nil)
}

// Search queries the collection, returning passages above the threshold in
// descending score order. Qdrant applies limit, threshold, and ordering
// server-side.
func (q *Qdrant) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]model.Passage, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionPath("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	passages := make([]model.Passage, 0, len(resp.Result))
	for _, r := range resp.Result {
		p := model.Passage{
			ID:    fmt.Sprint(r.ID),
			Score: r.Score,
		}
		if content, ok := r.Payload["content"].(string); ok {
			p.Content = content
		}
		if metadata, ok := r.Payload["metadata"].(map[string]any); ok {
			p.Metadata = metadata
		}
		passages = append(passages, p)
	}
	return passages, nil
}

// Upsert overwrites points by ID, waiting for the write to be applied.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		qdrantPoints[i] = map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"content":  p.Content,
				"metadata": p.Metadata,
			},
		}
	}
	body := map[string]any{"points": qdrantPoints}
	return q.do(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), body, nil)
}

// Count returns the exact number of indexed points.
func (q *Qdrant) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionPath("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// CollectionInfo returns the collection's configured vector size, distance
// metric, and point count.
func (q *Qdrant) CollectionInfo(ctx context.Context) (CollectionInfo, error) {
	var resp qdrantCollectionResponse
	if err := q.do(ctx, http.MethodGet, q.collectionPath(""), nil, &resp); err != nil {
		return CollectionInfo{}, err
	}
	return CollectionInfo{
		VectorSize: resp.Result.Config.Params.Vectors.Size,
		Distance:   resp.Result.Config.Params.Vectors.Distance,
		Points:     resp.Result.PointsCount,
	}, nil
}

func (q *Qdrant) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.url, q.collection, suffix)
}

func (q *Qdrant) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", ErrStore, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrStore, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrStore, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %s", ErrStore, method, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrStore, err)
		}
	}
	return nil
}

// Verify Qdrant implements Store
var _ Store = (*Qdrant)(nil)
