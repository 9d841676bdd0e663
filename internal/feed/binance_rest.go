package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultTickerEndpoint = "https://api.binance.com/api/v3/ticker/price"

// staleAfterFailures is the consecutive-failure count past which the feed
// reports itself degraded and quotes are flagged stale.
const staleAfterFailures = 3

// BinancePriceFeed polls the exchange REST ticker endpoint. Every successful
// fetch refreshes a short-lived cache; when the upstream is down the cache
// keeps serving last-known quotes flagged stale so readers can tell the
// difference.
type BinancePriceFeed struct {
	HTTP     *http.Client
	Logger   *zap.Logger
	Endpoint string
	CacheTTL time.Duration

	once  sync.Once
	cache *gocache.Cache

	mu       sync.Mutex
	lastPoll *time.Time
	lastErr  *string
	failures int
}

func (f *BinancePriceFeed) Name() string { return "binance_rest" }

func (f *BinancePriceFeed) init() {
	f.once.Do(func() {
		if f.HTTP == nil {
			f.HTTP = &http.Client{Timeout: 10 * time.Second}
		}
		if f.Logger == nil {
			f.Logger = zap.NewNop()
		}
		ttl := f.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		f.cache = gocache.New(ttl, 2*ttl)
	})
}

// Prices fetches quotes for the given symbols in one batch request. On fetch
// failure it degrades to cached quotes instead of erroring out, so a transient
// upstream outage never empties the price map.
func (f *BinancePriceFeed) Prices(ctx context.Context, symbols []string) (map[string]Quote, error) {
	if f == nil {
		return nil, nil
	}
	f.init()
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return map[string]Quote{}, nil
	}

	now := time.Now().UTC()
	fetched, err := f.fetch(ctx, symbols)
	if err != nil {
		f.recordFailure(now, err)
		f.Logger.Warn("price fetch failed, serving cached quotes",
			zap.Int("symbols", len(symbols)),
			zap.Error(err))
		return f.cached(symbols), nil
	}
	f.recordSuccess(now)

	out := make(map[string]Quote, len(symbols))
	for _, q := range fetched {
		f.cache.Set(q.Symbol, q, gocache.DefaultExpiration)
		out[q.Symbol] = q
	}
	// Backfill symbols missing from the response from cache.
	for _, sym := range symbols {
		if _, ok := out[sym]; ok {
			continue
		}
		if q, ok := f.cachedQuote(sym); ok {
			out[sym] = q
		}
	}
	return out, nil
}

func (f *BinancePriceFeed) Health() HealthStatus {
	if f == nil {
		return HealthStatus{Status: "unknown"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status := "healthy"
	switch {
	case f.lastPoll == nil:
		status = "unknown"
	case f.failures >= staleAfterFailures:
		status = "down"
	case f.failures > 0:
		status = "degraded"
	}
	return HealthStatus{
		Status:              status,
		LastPollAt:          f.lastPoll,
		LastError:           f.lastErr,
		ConsecutiveFailures: f.failures,
	}
}

func (f *BinancePriceFeed) fetch(ctx context.Context, symbols []string) ([]Quote, error) {
	endpoint := strings.TrimSpace(f.Endpoint)
	if endpoint == "" {
		endpoint = DefaultTickerEndpoint
	}
	// The batch endpoint takes a JSON array in the symbols query param.
	encoded, err := json.Marshal(symbols)
	if err != nil {
		return nil, err
	}
	reqURL := endpoint + "?symbols=" + url.QueryEscape(string(encoded))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	var parsed []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]Quote, 0, len(parsed))
	for _, row := range parsed {
		price, err := decimal.NewFromString(strings.TrimSpace(row.Price))
		if err != nil || !price.IsPositive() {
			continue
		}
		out = append(out, Quote{
			Symbol: strings.ToUpper(strings.TrimSpace(row.Symbol)),
			Price:  price,
			At:     now,
		})
	}
	return out, nil
}

func (f *BinancePriceFeed) cached(symbols []string) map[string]Quote {
	out := make(map[string]Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := f.cachedQuote(sym); ok {
			out[sym] = q
		}
	}
	return out
}

func (f *BinancePriceFeed) cachedQuote(symbol string) (Quote, bool) {
	raw, ok := f.cache.Get(symbol)
	if !ok {
		return Quote{}, false
	}
	q, ok := raw.(Quote)
	if !ok {
		return Quote{}, false
	}
	q.Stale = true
	return q, true
}

// Push injects a quote from an external source, typically the websocket
// streamer, so REST consumers see streamed prices too.
func (f *BinancePriceFeed) Push(q Quote) {
	if f == nil || q.Symbol == "" || !q.Price.IsPositive() {
		return
	}
	f.init()
	f.cache.Set(strings.ToUpper(q.Symbol), q, gocache.DefaultExpiration)
}

func (f *BinancePriceFeed) recordSuccess(ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPoll = &ts
	f.lastErr = nil
	f.failures = 0
}

func (f *BinancePriceFeed) recordFailure(ts time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPoll = &ts
	msg := err.Error()
	f.lastErr = &msg
	f.failures++
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := map[string]struct{}{}
	for _, raw := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
