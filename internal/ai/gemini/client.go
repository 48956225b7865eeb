package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3

	// Quota errors advertising a delay longer than this are not worth
	// waiting out inside a single generation call.
	maxQuotaDelay = 30 * time.Second

	retryBackoff = 2 * time.Second
)

// Replaceable in tests.
var sleep = time.Sleep

var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

// chatSession is the part of a Gemini chat the generator uses.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// chatCreator abstracts genai chat construction so tests can stub the API.
type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (c *genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return c.client.Chats.Create(ctx, model, config, history)
}

// Generator wraps the Google GenAI client with retry-aware, prompt-based
// content generation.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Generator{
		chats:      &genaiChats{client: client},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// GenerateContent sends the message under the given system instruction and
// returns the first textual response. Temporary API errors are retried up to
// the configured limit.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	config := &genai.GenerateContentConfig{}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if attempt > 1 {
			sleep(retryBackoff)
		}

		output, err := g.send(ctx, config, message)
		if err == nil {
			return output, nil
		}
		lastErr = err

		if !retryable(err) {
			return "", err
		}

		g.logger.Debug("retrying gemini request",
			zap.String("model", g.model),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return "", fmt.Errorf("gemini request failed after %d attempts: %w", g.maxRetries, lastErr)
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// retryable reports whether the error is worth another attempt. Server-side
// failures are retried; quota errors only when the advertised delay is short.
func retryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	if apiErr.Code >= http.StatusInternalServerError {
		return true
	}

	if apiErr.Code == http.StatusTooManyRequests {
		if m := retryAfterRe.FindStringSubmatch(apiErr.Message); m != nil {
			seconds, convErr := strconv.Atoi(m[1])
			if convErr == nil && time.Duration(seconds)*time.Second > maxQuotaDelay {
				return false
			}
		}
		return true
	}

	return false
}
