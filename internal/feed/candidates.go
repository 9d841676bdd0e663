package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradingx/internal/models"
)

// StrategyClient fetches signal candidates from the upstream strategy service
// over REST. The wire format mirrors what the strategy layer emits; conversion
// into tracked signals (stable ID, normalized fields) happens here so the rest
// of the engine never sees the raw DTO.
type StrategyClient struct {
	HTTP    *http.Client
	Logger  *zap.Logger
	BaseURL string

	mu       sync.Mutex
	lastPoll *time.Time
	lastErr  *string
	failures int
}

type candidateDTO struct {
	Symbol           string              `json:"symbol"`
	SignalType       string              `json:"signal_type"`
	StrategyName     string              `json:"strategy_name"`
	PrimaryTimeframe string              `json:"primary_timeframe"`
	IsScalping       bool                `json:"is_scalping"`
	EntryPrice       string              `json:"entry_price"`
	Confidence       float64             `json:"confidence"`
	Urgency          string              `json:"urgency_level"`
	Indicators       models.IndicatorSet `json:"indicators"`
	CreatedAt        time.Time           `json:"created_at"`
	ExpiresAt        time.Time           `json:"expires_at"`
}

func (c *StrategyClient) Name() string { return "strategy_rest" }

func (c *StrategyClient) Candidates(ctx context.Context, filters Filters) ([]models.Signal, error) {
	if c == nil {
		return nil, nil
	}
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("strategy feed base url not configured")
	}

	query := url.Values{}
	if symbols := normalizeSymbols(filters.Symbols); len(symbols) > 0 {
		query.Set("symbols", strings.Join(symbols, ","))
	}
	if timeframes := cleanList(filters.Timeframes, strings.ToLower); len(timeframes) > 0 {
		query.Set("timeframes", strings.Join(timeframes, ","))
	}
	if urgencies := cleanList(filters.UrgencyLevels, strings.ToLower); len(urgencies) > 0 {
		query.Set("urgency_levels", strings.Join(urgencies, ","))
	}
	if filters.MinConfidence > 0 {
		query.Set("min_confidence", strconv.FormatFloat(filters.MinConfidence, 'f', -1, 64))
	}
	if filters.ScalpingOnly {
		query.Set("scalping_only", "true")
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	reqURL := base + "/api/v1/signals/latest"
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	now := time.Now().UTC()
	rows, err := c.fetch(ctx, reqURL)
	if err != nil {
		c.recordFailure(now, err)
		return nil, err
	}
	c.recordSuccess(now)

	out := make([]models.Signal, 0, len(rows))
	for _, row := range rows {
		sig, ok := c.convert(row)
		if !ok {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

func (c *StrategyClient) Health() HealthStatus {
	if c == nil {
		return HealthStatus{Status: "unknown"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	status := "healthy"
	switch {
	case c.lastPoll == nil:
		status = "unknown"
	case c.failures >= staleAfterFailures:
		status = "down"
	case c.failures > 0:
		status = "degraded"
	}
	return HealthStatus{
		Status:              status,
		LastPollAt:          c.lastPoll,
		LastError:           c.lastErr,
		ConsecutiveFailures: c.failures,
	}
}

func (c *StrategyClient) fetch(ctx context.Context, reqURL string) ([]candidateDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	var rows []candidateDTO
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// convert normalizes one wire candidate. Rows missing a symbol, a positive
// entry price or a valid validity window are dropped with a warning rather
// than tracked with fabricated values.
func (c *StrategyClient) convert(row candidateDTO) (models.Signal, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
	if symbol == "" {
		return models.Signal{}, false
	}
	entry, err := decimal.NewFromString(strings.TrimSpace(row.EntryPrice))
	if err != nil || !entry.IsPositive() {
		c.Logger.Warn("dropping candidate without entry price", zap.String("symbol", symbol))
		return models.Signal{}, false
	}
	if row.CreatedAt.IsZero() || row.ExpiresAt.IsZero() || !row.ExpiresAt.After(row.CreatedAt) {
		c.Logger.Warn("dropping candidate with invalid validity window",
			zap.String("symbol", symbol),
			zap.Time("created_at", row.CreatedAt),
			zap.Time("expires_at", row.ExpiresAt))
		return models.Signal{}, false
	}

	direction := models.DirectionLong
	if strings.EqualFold(strings.TrimSpace(row.SignalType), "SHORT") {
		direction = models.DirectionShort
	}
	urgency := models.Urgency(strings.ToLower(strings.TrimSpace(row.Urgency)))
	switch urgency {
	case models.UrgencyUrgent, models.UrgencyHigh, models.UrgencyMedium, models.UrgencyLow:
	default:
		urgency = models.UrgencyMedium
	}
	timeframe := strings.TrimSpace(row.PrimaryTimeframe)
	strategy := strings.TrimSpace(row.StrategyName)
	createdAt := row.CreatedAt.UTC()

	payload, _ := json.Marshal(row)

	return models.Signal{
		ID:               models.SignalID(symbol, direction, timeframe, strategy, createdAt),
		Symbol:           symbol,
		Direction:        direction,
		StrategyName:     strategy,
		PrimaryTimeframe: timeframe,
		IsScalping:       row.IsScalping,
		EntryPrice:       entry,
		Confidence:       row.Confidence,
		Urgency:          urgency,
		Indicators:       row.Indicators,
		Payload:          payload,
		Status:           models.StatusActive,
		CreatedAt:        createdAt,
		ExpiresAt:        row.ExpiresAt.UTC(),
	}, true
}

func cleanList(items []string, normalize func(string) string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := normalize(strings.TrimSpace(raw))
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

func (c *StrategyClient) recordSuccess(ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = &ts
	c.lastErr = nil
	c.failures = 0
}

func (c *StrategyClient) recordFailure(ts time.Time, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = &ts
	msg := err.Error()
	c.lastErr = &msg
	c.failures++
}
