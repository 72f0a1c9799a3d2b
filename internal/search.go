package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"captioner/internal/captions"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

const searchLimit = 20

type (
	SearchItem struct {
		ID        int64    `json:"id"`
		Platform  string   `json:"platform"`
		Caption   string   `json:"caption"`
		Hashtags  []string `json:"hashtags"`
		CreatedAt string   `json:"created_at"`
	}

	SearchResponse struct {
		Total int64         `json:"total"`
		Items []*SearchItem `json:"items"`
	}
)

type CaptionSearch struct {
	es    *elasticsearch.TypedClient
	index string
}

func NewCaptionSearch(es *elasticsearch.TypedClient, index string) *CaptionSearch {
	return &CaptionSearch{es: es, index: index}
}

// EnsureIndex creates the caption index when it does not exist yet.
func (s *CaptionSearch) EnsureIndex(ctx context.Context) error {
	exists, err := s.es.Indices.Exists(s.index).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.es.Indices.Create(s.index).Do(ctx)
	return err
}

func (s *CaptionSearch) IndexCaption(ctx context.Context, event *CaptionEvent) error {
	_, err := s.es.Index(s.index).
		Id(strconv.FormatInt(event.ID, 10)).
		Request(event).
		Do(ctx)
	return err
}

// Search matches query against caption text. Callers only see their own
// captions; the anonymous identity sees captions stored without a user.
func (s *CaptionSearch) Search(ctx context.Context, who captions.Identity, query string) (*SearchResponse, error) {
	q := &types.Query{
		Bool: &types.BoolQuery{
			Must: []types.Query{{
				Match: map[string]types.MatchQuery{
					"caption": {Query: query},
				},
			}},
			Filter: []types.Query{{
				Term: map[string]types.TermQuery{
					"user.keyword": {Value: string(who)},
				},
			}},
		},
	}

	size := searchLimit
	result, err := s.es.Search().
		Index(s.index).
		Request(&search.Request{
			Query: q,
			Size:  &size,
		}).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	resp := SearchResponse{
		Items: make([]*SearchItem, 0, len(result.Hits.Hits)),
	}
	if result.Hits.Total != nil {
		resp.Total = result.Hits.Total.Value
	}

	for _, item := range result.Hits.Hits {
		var parsed SearchItem
		if err := json.Unmarshal(item.Source_, &parsed); err != nil {
			slog.Error("failed to unmarshall json", slog.String("json", string(item.Source_)))
			return nil, err
		}
		resp.Items = append(resp.Items, &parsed)
	}

	return &resp, nil
}
