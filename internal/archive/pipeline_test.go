package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradingx/internal/models"
	"tradingx/internal/repository"
)

// stubRepo is an in-memory repository.Repository for pipeline tests.
type stubRepo struct {
	mu      sync.Mutex
	active  map[string]models.Signal
	history map[string]models.ArchivedSignal

	insertErr error
	deleteErr error

	// insertBarrier, when set, blocks InsertArchivedSignals until released.
	insertBarrier chan struct{}
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		active:  map[string]models.Signal{},
		history: map[string]models.ArchivedSignal{},
	}
}

func (r *stubRepo) UpsertSignals(_ context.Context, items []models.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.active[item.ID] = item
	}
	return nil
}

func (r *stubRepo) GetSignalByID(_ context.Context, id string) (*models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sig, ok := r.active[id]; ok {
		return &sig, nil
	}
	return nil, nil
}

func (r *stubRepo) ListSignals(_ context.Context, _ repository.ListSignalsParams) ([]models.Signal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Signal, 0, len(r.active))
	for _, sig := range r.active {
		out = append(out, sig)
	}
	return out, nil
}

func (r *stubRepo) CountSignals(_ context.Context, _ repository.ListSignalsParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.active)), nil
}

func (r *stubRepo) UpdateSignalPrices(_ context.Context, updates []repository.PriceUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, upd := range updates {
		if sig, ok := r.active[upd.SignalID]; ok {
			price := upd.Price
			sig.CurrentPrice = &price
			r.active[upd.SignalID] = sig
		}
	}
	return nil
}

func (r *stubRepo) DeleteSignals(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	var n int64
	for _, id := range ids {
		if _, ok := r.active[id]; ok {
			delete(r.active, id)
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) InsertArchivedSignals(_ context.Context, items []models.ArchivedSignal) (int64, error) {
	if r.insertBarrier != nil {
		<-r.insertBarrier
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	var n int64
	for _, item := range items {
		if _, ok := r.history[item.SignalID]; ok {
			continue
		}
		r.history[item.SignalID] = item
		n++
	}
	return n, nil
}

func (r *stubRepo) ListArchivedSignals(_ context.Context, _ repository.ListArchivedSignalsParams) ([]models.ArchivedSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ArchivedSignal, 0, len(r.history))
	for _, row := range r.history {
		out = append(out, row)
	}
	return out, nil
}

func (r *stubRepo) CountArchivedSignals(_ context.Context, _ repository.ListArchivedSignalsParams) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.history)), nil
}

func (r *stubRepo) ListArchivedSignalIDs(_ context.Context, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, id := range ids {
		if _, ok := r.history[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *stubRepo) HistoryStats(_ context.Context, _ repository.HistoryStatsParams) (repository.HistoryStats, error) {
	return repository.HistoryStats{}, nil
}

func (r *stubRepo) DeleteArchivedBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.history {
		if row.ArchivedAt.Before(before) {
			delete(r.history, id)
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) UpsertSignalSource(_ context.Context, _ *models.SignalSource) error {
	return nil
}

func (r *stubRepo) ListSignalSources(_ context.Context) ([]models.SignalSource, error) {
	return nil, nil
}

func archSignal(id, symbol string, entry, current float64) models.Signal {
	now := time.Now().UTC()
	sig := models.Signal{
		ID:               id,
		Symbol:           symbol,
		Direction:        models.DirectionLong,
		EntryPrice:       decimal.NewFromFloat(entry),
		Confidence:       0.7,
		Urgency:          models.UrgencyMedium,
		Status:           models.StatusActive,
		PrimaryTimeframe: "5m",
		CreatedAt:        now.Add(-time.Hour),
		ExpiresAt:        now.Add(time.Hour),
	}
	if current > 0 {
		cur := decimal.NewFromFloat(current)
		sig.CurrentPrice = &cur
		at := now
		sig.PriceUpdatedAt = &at
	}
	return sig
}

func TestArchiveMovesSignalToHistory(t *testing.T) {
	repo := newStubRepo()
	sig := archSignal("sig-1", "BTCUSDT", 100, 110)
	repo.active[sig.ID] = sig

	p := NewPipeline(repo, zap.NewNop())
	n, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonCompleted)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 archived, got %d", n)
	}
	if _, ok := repo.active[sig.ID]; ok {
		t.Fatal("signal still active after archive")
	}
	row, ok := repo.history[sig.ID]
	if !ok {
		t.Fatal("no history row written")
	}
	if row.TradeResult != models.ResultSuccess {
		t.Fatalf("expected success, got %s", row.TradeResult)
	}
	if row.ProfitPct == nil || *row.ProfitPct < 9.9 || *row.ProfitPct > 10.1 {
		t.Fatalf("unexpected profit pct: %v", row.ProfitPct)
	}
}

func TestArchiveWithoutPriceIsUnresolved(t *testing.T) {
	repo := newStubRepo()
	sig := archSignal("sig-2", "ETHUSDT", 2000, 0)
	repo.active[sig.ID] = sig

	p := NewPipeline(repo, zap.NewNop())
	if _, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonExpired); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	row := repo.history[sig.ID]
	if row.TradeResult != models.ResultUnresolved {
		t.Fatalf("expected unresolved without a price, got %s", row.TradeResult)
	}
	if row.ProfitPct != nil {
		t.Fatalf("unresolved row must not carry a profit pct, got %v", *row.ProfitPct)
	}
}

func TestArchiveIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	sig := archSignal("sig-3", "SOLUSDT", 100, 99)
	repo.active[sig.ID] = sig

	p := NewPipeline(repo, zap.NewNop())
	if _, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonArchived); err != nil {
		t.Fatalf("first archive failed: %v", err)
	}
	// Simulate the active row surviving a crash after the history write.
	repo.active[sig.ID] = sig
	n, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonArchived)
	if err != nil {
		t.Fatalf("second archive failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("re-archive must not write new rows, got %d", n)
	}
	if len(repo.history) != 1 {
		t.Fatalf("expected single history row, got %d", len(repo.history))
	}
	if _, ok := repo.active[sig.ID]; ok {
		t.Fatal("stale active row must be cleaned up on re-archive")
	}
}

func TestArchivePersistenceFailureKeepsBatchActive(t *testing.T) {
	repo := newStubRepo()
	repo.insertErr = errors.New("db down")
	sig := archSignal("sig-4", "BNBUSDT", 300, 310)
	repo.active[sig.ID] = sig

	p := NewPipeline(repo, zap.NewNop())
	n, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonCompleted)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if n != 0 {
		t.Fatalf("nothing should be archived on failure, got %d", n)
	}
	if _, ok := repo.active[sig.ID]; !ok {
		t.Fatal("batch must stay active when the history write fails")
	}
}

func TestArchiveSingleFlight(t *testing.T) {
	repo := newStubRepo()
	repo.insertBarrier = make(chan struct{})
	sig := archSignal("sig-5", "XRPUSDT", 1, 1.1)
	repo.active[sig.ID] = sig

	p := NewPipeline(repo, zap.NewNop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonCompleted); err != nil {
			t.Errorf("archive failed: %v", err)
		}
	}()

	// Wait until the first call is inside the blocked insert, then race a
	// second call against it.
	time.Sleep(50 * time.Millisecond)
	n, err := p.Archive(context.Background(), []models.Signal{sig}, models.ReasonCompleted)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("overlapping archive must report busy, got %v", err)
	}
	if n != 0 {
		t.Fatalf("overlapping archive must be a no-op, got %d", n)
	}

	close(repo.insertBarrier)
	<-done
	if len(repo.history) != 1 {
		t.Fatalf("expected exactly one history row, got %d", len(repo.history))
	}
}
