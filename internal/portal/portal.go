package portal

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "http://localhost:5000"
	defaultUserAgent = "job-apply-agent (github.com/anirbandas/job-apply-agent)"
	defaultLimit     = 30
)

// Client talks to the job portal: the search endpoint that produces candidate
// jobs and the apply endpoint that accepts submissions.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string
}

func New(logger *zap.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		logger:  logger,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: defaultUserAgent,
	}
}
