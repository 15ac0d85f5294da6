package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/overshare-io/overshare/internal/annotate"
	overshareotel "github.com/overshare-io/overshare/internal/otel"
)

var tracer = overshareotel.Tracer("github.com/overshare-io/overshare/internal/classifier")

const (
	// DefaultModel is a cheap model that handles the few-shot task well.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxTokens bounds the JSON reply; the schema is compact.
	DefaultMaxTokens = 220

	// DefaultCacheSize is the number of memoized responses kept. Identical
	// posts are common when callers re-analyze while typing.
	DefaultCacheSize = 512

	maxRetries = 6
	baseDelay  = 250 * time.Millisecond
)

// OpenAIClassifier calls an OpenAI-compatible chat completion endpoint with
// temperature 0 and a JSON response format, retries transient failures, and
// memoizes responses in a bounded LRU cache.
type OpenAIClassifier struct {
	client    *openai.Client
	model     string
	maxTokens int
	cache     *lru.Cache[string, *Outcome]
}

// Option configures an OpenAIClassifier.
type Option func(*OpenAIClassifier)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *OpenAIClassifier) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxTokens overrides the reply token budget.
func WithMaxTokens(n int) Option {
	return func(c *OpenAIClassifier) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithClient injects a pre-configured client. Used in tests to point at an
// httptest server.
func WithClient(client *openai.Client) Option {
	return func(c *OpenAIClassifier) { c.client = client }
}

// NewOpenAIClassifier builds a classifier for the given API key. cacheSize
// bounds the memoization cache; values below 1 fall back to the default.
func NewOpenAIClassifier(apiKey string, cacheSize int, opts ...Option) (*OpenAIClassifier, error) {
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Outcome](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("classifier cache: %w", err)
	}
	c := &OpenAIClassifier{
		client:    openai.NewClient(apiKey),
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewOpenAIClassifierWithBaseURL builds a classifier against a custom
// endpoint, e.g. a proxy or a mock server. baseURL is scheme+host without
// the /v1 path.
func NewOpenAIClassifierWithBaseURL(apiKey, baseURL string, cacheSize int, opts ...Option) (*OpenAIClassifier, error) {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL + "/v1"
	opts = append([]Option{WithClient(openai.NewClientWithConfig(config))}, opts...)
	return NewOpenAIClassifier(apiKey, cacheSize, opts...)
}

// Classify implements RiskClassifier. Model failures after retries return
// ErrClassifierUnavailable; malformed model output returns an empty outcome
// and a nil error.
func (c *OpenAIClassifier) Classify(ctx context.Context, post string, hints []annotate.Hint) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "classifier.classify",
		trace.WithAttributes(
			attribute.String("classifier.model", c.model),
			attribute.Int("classifier.hints", len(hints)),
		))
	defer span.End()

	messages := buildMessages(post, hints)
	key := c.cacheKey(messages)
	if out, ok := c.cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("classifier.cache_hit", true))
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, TimeoutClassifyCall)
	defer cancel()

	content, err := c.complete(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := ParseOutcome(content)
	c.cache.Add(key, out)
	span.SetAttributes(
		attribute.Int("classifier.labels", len(out.Categories)),
		attribute.Int("classifier.fragments", len(out.Fragments)),
	)
	return out, nil
}

// complete runs the chat completion with exponential backoff and jitter on
// transient failures.
func (c *OpenAIClassifier) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "{}", nil
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxRetries {
			break
		}
		delay := backoffDelay(attempt)
		log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).
			Msg("classifier call failed, retrying")
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrClassifierUnavailable, ctx.Err())
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("%w: %w", ErrClassifierUnavailable, lastErr)
}

func (c *OpenAIClassifier) cacheKey(messages []openai.ChatCompletionMessage) string {
	h := sha256.New()
	for _, m := range messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return c.model + "|" + strconv.Itoa(c.maxTokens) + "|" + hex.EncodeToString(h.Sum(nil))
}

// retryable reports whether the error is worth another attempt: rate limits,
// server-side errors, and network timeouts. Invalid requests and auth
// failures are terminal.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// backoffDelay is base*2^(attempt-1) scaled by jitter in [0.8, 1.2).
func backoffDelay(attempt int) time.Duration {
	d := baseDelay * time.Duration(1<<(attempt-1))
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(d) * jitter)
}
