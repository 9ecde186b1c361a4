package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dkazakov/pipesentry/internal/domain/entities"
	"github.com/dkazakov/pipesentry/pkg/config"
	apperrors "github.com/dkazakov/pipesentry/pkg/errors"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the Gemini assessment provider.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *tokenBucket
}

// NewClient creates a new Gemini client.
func NewClient(cfg *config.GeminiConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generateConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
	GenerationConfig  generateConfig    `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AssessObject produces a raw assessment for a single object.
func (c *Client) AssessObject(ctx context.Context, request *entities.AssessmentRequest) (*entities.RawAssessment, error) {
	if request == nil {
		return nil, errors.New("assessment request is required")
	}

	text, err := c.generate(ctx, "single", assessmentSystemPrompt, request, 1024)
	if err != nil {
		return nil, err
	}

	var raw entities.RawAssessment
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, apperrors.NewUpstreamError("failed to parse gemini response", err)
	}

	return &raw, nil
}

// AssessObjects produces raw assessments for several objects in one
// model call, keyed by object ID. Elements the model returned without a
// recognizable object_id are dropped.
func (c *Client) AssessObjects(ctx context.Context, requests []*entities.AssessmentRequest) (map[string]*entities.RawAssessment, error) {
	if len(requests) == 0 {
		return map[string]*entities.RawAssessment{}, nil
	}

	text, err := c.generate(ctx, "batch", batchAssessmentSystemPrompt, requests, 8192)
	if err != nil {
		return nil, err
	}

	var raws []*entities.RawAssessment
	if err := json.Unmarshal([]byte(text), &raws); err != nil {
		return nil, apperrors.NewUpstreamError("failed to parse gemini batch response", err)
	}

	known := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		known[req.ObjectID] = struct{}{}
	}

	results := make(map[string]*entities.RawAssessment, len(raws))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		id := raw.ObjectID
		if _, ok := known[id]; !ok {
			// Fall back to positional matching when the model dropped
			// or mangled the id
			if i < len(requests) {
				id = requests[i].ObjectID
			} else {
				continue
			}
		}
		results[id] = raw
	}

	return results, nil
}

func (c *Client) generate(ctx context.Context, mode, systemPrompt string, userPayload interface{}, maxTokens int) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordGeminiMetric(ctx, c.model, mode, 0, 0, err)
			return "", err
		}
		recordGeminiRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	userContent, err := json.Marshal(userPayload)
	if err != nil {
		return "", err
	}

	payload := generateRequest{
		SystemInstruction: &generateContent{
			Parts: []generatePart{{Text: systemPrompt}},
		},
		Contents: []generateContent{
			{Role: "user", Parts: []generatePart{{Text: string(userContent)}}},
		},
		GenerationConfig: generateConfig{
			Temperature:      0.2,
			MaxOutputTokens:  maxTokens,
			ResponseMimeType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordGeminiMetric(ctx, c.model, mode, 0, time.Since(start), err)
		return "", apperrors.NewExternalError("gemini request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("status %d", resp.StatusCode)
		recordGeminiMetric(ctx, c.model, mode, resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewExternalError(fmt.Sprintf("gemini request failed with status %d", resp.StatusCode), nil)
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordGeminiMetric(ctx, c.model, mode, resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewUpstreamError("failed to decode gemini response", err)
	}

	var text string
	for _, candidate := range envelope.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text = part.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		err := errors.New("missing candidate text")
		recordGeminiMetric(ctx, c.model, mode, resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewUpstreamError("gemini response missing candidate text", nil)
	}

	recordGeminiMetric(ctx, c.model, mode, resp.StatusCode, time.Since(start), nil)
	return stripCodeFences(text), nil
}

// stripCodeFences cleans Markdown code blocks the model sometimes wraps
// around JSON despite the response mime type.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}

	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

type tokenBucket struct {
	tokens chan struct{}
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

type geminiMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var geminiMetricsInit = false
var geminiMetricsSet geminiMetrics

func ensureGeminiMetrics() {
	if geminiMetricsInit {
		return
	}
	meter := otel.Meter("github.com/dkazakov/pipesentry/gemini")

	requestCount, err := meter.Int64Counter(
		"ai.gemini.client.request.count",
		metric.WithDescription("Number of Gemini requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.gemini.client.request.duration",
		metric.WithDescription("Gemini request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.gemini.client.request.errors",
		metric.WithDescription("Number of Gemini request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.gemini.client.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the Gemini rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	geminiMetricsSet = geminiMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	geminiMetricsInit = true
}

func recordGeminiMetric(ctx context.Context, model, mode string, statusCode int, duration time.Duration, err error) {
	ensureGeminiMetrics()
	if !geminiMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.String("ai.mode", mode),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	geminiMetricsSet.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	geminiMetricsSet.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		geminiMetricsSet.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordGeminiRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureGeminiMetrics()
	if !geminiMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	}
	geminiMetricsSet.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
