package portal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"
)

const searchPath = "/search"

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResponse struct {
	Query   string           `json:"query"`
	Results []map[string]any `json:"results"`
}

// Search asks the portal for candidate jobs matching the query. The portal
// controls ranking; we only cap the batch size.
func (c *Client) Search(ctx context.Context, query string, limit int) (*Jobs, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	var resp searchResponse
	status, err := c.postJSON(ctx, searchPath, searchRequest{Query: query, TopK: limit}, &resp)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search: bad status: %d", status)
	}

	var jobs []*Job
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &jobs,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(resp.Results); err != nil {
		return nil, fmt.Errorf("decode search results: %w", err)
	}

	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	return &Jobs{Items: jobs}, nil
}
