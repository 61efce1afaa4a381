// internal/service/warehouse/application/ledger_test.go
package application

import (
	"context"
	"sync"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/warehouse/domain"
)

type fakeItemRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]domain.LedgerItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{nextID: 1, items: make(map[int64]domain.LedgerItem)}
}

func (r *fakeItemRepo) FindByID(_ context.Context, id int64) (*domain.LedgerItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

func (r *fakeItemRepo) FindByProductName(_ context.Context, name string) (*domain.LedgerItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ProductName == name {
			found := item
			return &found, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r *fakeItemRepo) FindAll(_ context.Context) ([]domain.LedgerItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LedgerItem, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeItemRepo) Save(_ context.Context, item *domain.LedgerItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.ID == 0 {
		item.ID = r.nextID
		r.nextID++
	}
	r.items[item.ID] = *item
	return nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (r *fakeEntryRepo) Append(_ context.Context, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeEntryRepo) FindByProduct(_ context.Context, productID int64) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range r.entries {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) FindByNode(_ context.Context, nodeID string) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LedgerEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].NodeID == nodeID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type fakeStockProducer struct {
	mu     sync.Mutex
	events []events.StockChanged
}

func (p *fakeStockProducer) PublishStockChanged(_ context.Context, event *events.StockChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func newTestLedger() (*LedgerService, *fakeItemRepo, *fakeEntryRepo, *fakeStockProducer) {
	items := newFakeItemRepo()
	entries := &fakeEntryRepo{}
	stock := &fakeStockProducer{}
	svc := NewLedgerService("wh-1", items, entries, newFakeLocker(), stock, noop.NewTracerProvider().Tracer("test"))
	return svc, items, entries, stock
}

func TestAddStockCreatesItemAndAuditEntry(t *testing.T) {
	svc, _, entries, stock := newTestLedger()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, "widget", 10, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 10, item.StockOnHand)
	assert.Equal(t, 2.5, item.Price)
	assert.Equal(t, "wh-1", item.NodeID)

	require.Len(t, entries.entries, 1)
	entry := entries.entries[0]
	assert.Equal(t, domain.TransactionAdded, entry.TransactionType)
	assert.Equal(t, 10, entry.Quantity)
	assert.Equal(t, 0, entry.StockBefore)
	assert.Equal(t, 10, entry.StockAfter)

	require.Len(t, stock.events, 1)
	assert.Equal(t, 10, stock.events[0].StockOnHand)
}

// wrappingItemRepo 模拟基础设施层对哨兵错误做包装的情况。
type wrappingItemRepo struct {
	*fakeItemRepo
}

func (r *wrappingItemRepo) FindByProductName(ctx context.Context, name string) (*domain.LedgerItem, error) {
	item, err := r.fakeItemRepo.FindByProductName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "lookup ledger item")
	}
	return item, nil
}

func TestAddStockTreatsWrappedNotFoundAsNewItem(t *testing.T) {
	items := &wrappingItemRepo{fakeItemRepo: newFakeItemRepo()}
	svc := NewLedgerService("wh-1", items, &fakeEntryRepo{}, newFakeLocker(), &fakeStockProducer{}, noop.NewTracerProvider().Tracer("test"))

	item, err := svc.AddStock(context.Background(), "widget", 10, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 10, item.StockOnHand)
}

func TestAddStockUpsertsByProductName(t *testing.T) {
	svc, _, _, _ := newTestLedger()
	ctx := context.Background()

	first, err := svc.AddStock(ctx, "widget", 10, 2.5)
	require.NoError(t, err)
	second, err := svc.AddStock(ctx, "widget", 5, 3.0)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 15, second.StockOnHand)
	assert.Equal(t, 3.0, second.Price)
}

func TestSellDecrementsAndRecordsCounterparty(t *testing.T) {
	svc, _, entries, _ := newTestLedger()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, "widget", 10, 2.5)
	require.NoError(t, err)

	sold, err := svc.Sell(ctx, "origin-1", item.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, sold.StockOnHand)

	require.Len(t, entries.entries, 2)
	entry := entries.entries[1]
	assert.Equal(t, domain.TransactionSold, entry.TransactionType)
	assert.Equal(t, 4, entry.Quantity)
	require.NotNil(t, entry.CounterpartyID)
	assert.Equal(t, "origin-1", *entry.CounterpartyID)
}

func TestSellInsufficientStockLeavesLedgerUntouched(t *testing.T) {
	svc, items, entries, _ := newTestLedger()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, "widget", 3, 2.5)
	require.NoError(t, err)

	_, err = svc.Sell(ctx, "origin-1", item.ID, 5)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	reloaded, err := items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.StockOnHand)
	assert.Len(t, entries.entries, 1) // 只有 ADDED 那一条
}

func TestSellUnknownProduct(t *testing.T) {
	svc, _, _, _ := newTestLedger()

	_, err := svc.Sell(context.Background(), "origin-1", 999, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestConcurrentSellsNeverOversell(t *testing.T) {
	svc, items, _, _ := newTestLedger()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, "widget", 10, 2.5)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Sell(ctx, "origin-1", item.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	reloaded, err := items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.StockOnHand)
}

func TestAdjustRecordsSignedDelta(t *testing.T) {
	svc, _, entries, _ := newTestLedger()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, "widget", 10, 2.5)
	require.NoError(t, err)

	adjusted, err := svc.Adjust(ctx, item.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, adjusted.StockOnHand)

	entry := entries.entries[1]
	assert.Equal(t, domain.TransactionAdjusted, entry.TransactionType)
	assert.Equal(t, -3, entry.Quantity)
	assert.Equal(t, "Stock decreased", entry.Notes)

	_, err = svc.Adjust(ctx, item.ID, 12)
	require.NoError(t, err)
	entry = entries.entries[2]
	assert.Equal(t, 5, entry.Quantity)
	assert.Equal(t, "Stock increased", entry.Notes)
}

func TestAuditReplayMatchesStockAfterMixedOperations(t *testing.T) {
	svc, _, _, _ := newTestLedger()
	ctx := context.Background()

	item, err := svc.AddStock(ctx, "widget", 10, 2.5)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "origin-1", item.ID, 3)
	require.NoError(t, err)
	_, err = svc.Adjust(ctx, item.ID, 5)
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, "widget", 8, 2.8)
	require.NoError(t, err)
	_, err = svc.Sell(ctx, "origin-2", item.ID, 6)
	require.NoError(t, err)

	replayed, current, consistent, err := svc.AuditProduct(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, consistent)
	assert.Equal(t, 7, current)
	assert.Equal(t, current, replayed)
}
