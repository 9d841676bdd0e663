package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultStreamURL = "wss://stream.binance.com:9443/stream"

// miniTickerEvent is the combined-stream payload for <symbol>@miniTicker.
type miniTickerEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Close     string `json:"c"`
		EventTime int64  `json:"E"`
	} `json:"data"`
}

type TickerStreamOptions struct {
	URL               string
	Symbols           []string
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

// TickerStream maintains a websocket subscription to the exchange mini-ticker
// streams and forwards each price tick. It reconnects forever with capped
// exponential backoff until the context is cancelled.
type TickerStream struct {
	opts      TickerStreamOptions
	seenFirst bool
}

func NewTickerStream(opts TickerStreamOptions) *TickerStream {
	if opts.URL == "" {
		opts.URL = DefaultStreamURL
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &TickerStream{opts: opts}
}

func (s *TickerStream) Run(ctx context.Context, onQuote func(Quote)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	symbols := normalizeSymbols(s.opts.Symbols)
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to stream")
	}
	streamURL := s.streamURL(symbols)

	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, _, err := websocket.Dial(ctx, streamURL, nil)
		if err != nil {
			s.opts.Logger.Warn("ticker ws connect failed", zap.Error(err))
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		conn.SetReadLimit(1 << 20)
		s.opts.Logger.Info("ticker ws connected", zap.Int("symbols", len(symbols)))
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, conn, onQuote)
		_ = conn.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *TickerStream) consume(ctx context.Context, conn *websocket.Conn, onQuote func(Quote)) error {
	heartbeatErr := make(chan error, 1)
	heartbeatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				heartbeatErr <- heartbeatCtx.Err()
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(heartbeatCtx, s.opts.PingTimeout)
				err := conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					heartbeatErr <- err
					return
				}
			}
		}
	}()

	for {
		select {
		case err := <-heartbeatErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		default:
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.opts.Logger.Warn("ticker ws read failed", zap.Error(err))
			}
			return err
		}
		var event miniTickerEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		if event.Data.Symbol == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(event.Data.Close))
		if err != nil || !price.IsPositive() {
			continue
		}
		if !s.seenFirst {
			s.seenFirst = true
			s.opts.Logger.Info("ticker ws first message", zap.String("symbol", event.Data.Symbol))
		}
		at := time.Now().UTC()
		if event.Data.EventTime > 0 {
			at = time.UnixMilli(event.Data.EventTime).UTC()
		}
		if onQuote != nil {
			onQuote(Quote{
				Symbol: strings.ToUpper(event.Data.Symbol),
				Price:  price,
				At:     at,
			})
		}
	}
}

func (s *TickerStream) streamURL(symbols []string) string {
	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		streams = append(streams, strings.ToLower(sym)+"@miniTicker")
	}
	return s.opts.URL + "?streams=" + strings.Join(streams, "/")
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	var jitter time.Duration
	if half := int64(base / 2); half > 0 {
		jitter = time.Duration(rand.Int63n(half))
	}
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
