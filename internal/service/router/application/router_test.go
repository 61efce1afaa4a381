// internal/service/router/application/router_test.go
package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/domain/port"
)

type fakeSagaRepo struct {
	mu    sync.Mutex
	sagas map[string]domain.OrderSaga
}

func newFakeSagaRepo() *fakeSagaRepo {
	return &fakeSagaRepo{sagas: make(map[string]domain.OrderSaga)}
}

func (r *fakeSagaRepo) Create(_ context.Context, saga *domain.OrderSaga) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sagas[saga.OrderID] = *saga
	return nil
}

func (r *fakeSagaRepo) FindByOrderID(_ context.Context, orderID string) (*domain.OrderSaga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saga, ok := r.sagas[orderID]
	if !ok {
		return nil, domain.ErrSagaNotFound
	}
	return &saga, nil
}

func (r *fakeSagaRepo) Save(_ context.Context, saga *domain.OrderSaga) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sagas[saga.OrderID] = *saga
	return nil
}

func (r *fakeSagaRepo) FindByStatus(_ context.Context, status domain.Status) ([]domain.OrderSaga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderSaga
	for _, saga := range r.sagas {
		if saga.Status == status {
			out = append(out, saga)
		}
	}
	return out, nil
}

func (r *fakeSagaRepo) FindByOrigin(_ context.Context, originID string) ([]domain.OrderSaga, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.OrderSaga
	for _, saga := range r.sagas {
		if saga.OriginID == originID {
			out = append(out, saga)
		}
	}
	return out, nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[int64]map[string]domain.CachedStockEntry
	evicted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int64]map[string]domain.CachedStockEntry)}
}

func (c *fakeCache) Update(_ context.Context, entry domain.CachedStockEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	byNode, ok := c.entries[entry.ProductID]
	if !ok {
		byNode = make(map[string]domain.CachedStockEntry)
		c.entries[entry.ProductID] = byNode
	}
	byNode[entry.NodeID] = entry
	return nil
}

func (c *fakeCache) Entries(_ context.Context, productID int64) ([]domain.CachedStockEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.CachedStockEntry
	for _, entry := range c.entries[productID] {
		out = append(out, entry)
	}
	return out, nil
}

func (c *fakeCache) Candidates(ctx context.Context, productID int64, requiredQty int) ([]domain.CachedStockEntry, error) {
	entries, _ := c.Entries(ctx, productID)
	return domain.FilterCandidates(entries, requiredQty), nil
}

func (c *fakeCache) Evict(_ context.Context, productID int64, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries[productID], nodeID)
	c.evicted = append(c.evicted, nodeID)
	return nil
}

func (c *fakeCache) Snapshot(_ context.Context) (map[int64][]domain.CachedStockEntry, error) {
	return nil, nil
}

type fakeTopology struct {
	nodes []port.Node
}

func (t *fakeTopology) Nodes() []port.Node { return t.nodes }

// fakeProbe 按节点返回脚本化的结果；记录探测顺序。
type fakeProbe struct {
	mu      sync.Mutex
	results map[string]*port.ProbeResult
	errs    map[string]error
	probed  []string
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{results: make(map[string]*port.ProbeResult), errs: make(map[string]error)}
}

func (p *fakeProbe) Check(_ context.Context, node port.Node, _ int64, _ int, _ string) (*port.ProbeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, node.ID)
	if err, ok := p.errs[node.ID]; ok {
		return nil, err
	}
	if result, ok := p.results[node.ID]; ok {
		return result, nil
	}
	return nil, domain.ErrNodeUnavailable
}

type fakeDispatcher struct {
	mu       sync.Mutex
	accepted []events.OrderAccepted
	routed   map[string][]events.OrderRouted
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{routed: make(map[string][]events.OrderRouted)}
}

func (d *fakeDispatcher) DispatchAccepted(_ context.Context, event *events.OrderAccepted) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accepted = append(d.accepted, *event)
	return nil
}

func (d *fakeDispatcher) DispatchRouted(_ context.Context, nodeID string, event *events.OrderRouted) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routed[nodeID] = append(d.routed[nodeID], *event)
	return nil
}

func newTestRouter(cache domain.CandidateCache, topology port.Topology, probe port.PurchaseClient) (*RouterService, *fakeSagaRepo, *fakeDispatcher, *fakeForwarder) {
	sagas := newFakeSagaRepo()
	dispatcher := newFakeDispatcher()
	forwarder := newFakeForwarder()
	router := NewRouterService(sagas, cache, topology, probe, dispatcher, forwarder, nil,
		time.Second, noop.NewTracerProvider().Tracer("test"))
	return router, sagas, dispatcher, forwarder
}

func acceptOrder(t *testing.T, router *RouterService, sagas *fakeSagaRepo, productID int64, quantity int) *domain.OrderSaga {
	t.Helper()
	saga, err := router.CreateOrder(context.Background(), "origin-1", productID, "widget", quantity)
	require.NoError(t, err)
	stored, err := sagas.FindByOrderID(context.Background(), saga.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusAccepted, stored.Status)
	return saga
}

func TestCreateOrderPublishesAccepted(t *testing.T) {
	cache := newFakeCache()
	router, sagas, dispatcher, _ := newTestRouter(cache, &fakeTopology{}, newFakeProbe())

	saga := acceptOrder(t, router, sagas, 42, 3)

	require.Len(t, dispatcher.accepted, 1)
	assert.Equal(t, saga.OrderID, dispatcher.accepted[0].OrderID)
	assert.Equal(t, "origin-1", dispatcher.accepted[0].OriginID)
}

func TestCreateOrderFillsProductNameFromCache(t *testing.T) {
	cache := newFakeCache()
	_ = cache.Update(context.Background(), domain.CachedStockEntry{
		ProductID: 42, NodeID: "wh-1", StockOnHand: 10, Price: 2.5, ProductName: "widget",
	})
	router, _, _, _ := newTestRouter(cache, &fakeTopology{}, newFakeProbe())

	saga, err := router.CreateOrder(context.Background(), "origin-1", 42, "", 3)
	require.NoError(t, err)
	assert.Equal(t, "widget", saga.ProductName)
}

func TestRoutingEvictsFailedCandidateAndMovesOn(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-1", StockOnHand: 20})
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-2", StockOnHand: 10})

	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}, {ID: "wh-2"}}}
	probe := newFakeProbe()
	probe.errs["wh-1"] = domain.ErrInsufficientStock // 缓存说 20，实际已经卖空
	probe.results["wh-2"] = &port.ProbeResult{NodeID: "wh-2", ProductID: 42, Price: 2.5, StockAfter: 5}

	router, sagas, dispatcher, forwarder := newTestRouter(cache, topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))

	stored, err := sagas.FindByOrderID(ctx, saga.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRouted, stored.Status)
	require.NotNil(t, stored.NodeID)
	assert.Equal(t, "wh-2", *stored.NodeID)
	assert.Equal(t, 2.5, stored.Price)

	// 成交路径的结果由节点经 order.outcome 回报，路由层不直接通知发起方
	assert.Empty(t, forwarder.forwarded)

	// 失败的候选被淘汰，缓存里不再出现
	assert.Contains(t, cache.evicted, "wh-1")
	candidates, _ := cache.Candidates(ctx, 42, 1)
	for _, c := range candidates {
		assert.NotEqual(t, "wh-1", c.NodeID)
	}

	require.Len(t, dispatcher.routed["wh-2"], 1)
	assert.Equal(t, saga.OrderID, dispatcher.routed["wh-2"][0].OrderID)
}

func TestRoutingProbesDeepestStockFirst(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-1", StockOnHand: 8})
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-2", StockOnHand: 30})

	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}, {ID: "wh-2"}}}
	probe := newFakeProbe()
	probe.results["wh-1"] = &port.ProbeResult{NodeID: "wh-1", Price: 1.0}
	probe.results["wh-2"] = &port.ProbeResult{NodeID: "wh-2", Price: 1.0}

	router, sagas, _, _ := newTestRouter(cache, topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))
	assert.Equal(t, []string{"wh-2"}, probe.probed)
}

func TestEmptyCacheFallsBackToAllKnownNodes(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}, {ID: "wh-2"}, {ID: "wh-3"}}}
	probe := newFakeProbe()
	probe.errs["wh-1"] = domain.ErrInsufficientStock
	probe.errs["wh-2"] = domain.ErrNodeUnavailable
	probe.results["wh-3"] = &port.ProbeResult{NodeID: "wh-3", Price: 3.0}

	router, sagas, _, _ := newTestRouter(cache, topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))

	// 兜底按拓扑顺序逐个探测，直到成交
	assert.Equal(t, []string{"wh-1", "wh-2", "wh-3"}, probe.probed)
	stored, err := sagas.FindByOrderID(ctx, saga.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRouted, stored.Status)
	assert.Equal(t, "wh-3", *stored.NodeID)
}

func TestExhaustionWithoutCandidatesIsOutOfStock(t *testing.T) {
	ctx := context.Background()
	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}, {ID: "wh-2"}}}
	probe := newFakeProbe()
	probe.errs["wh-1"] = domain.ErrInsufficientStock
	probe.errs["wh-2"] = domain.ErrInsufficientStock

	router, sagas, dispatcher, forwarder := newTestRouter(newFakeCache(), topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))

	stored, err := sagas.FindByOrderID(ctx, saga.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOutOfStock, stored.Status)
	assert.NotEmpty(t, stored.Notes)
	assert.NotNil(t, stored.CompletedAt)
	assert.Empty(t, dispatcher.routed)

	// 没有节点会为这笔订单回报结果，终态必须由路由层直接送达发起方
	require.Len(t, forwarder.forwarded["origin-1"], 1)
	outcome := forwarder.forwarded["origin-1"][0]
	assert.Equal(t, saga.OrderID, outcome.OrderID)
	assert.Equal(t, string(domain.StatusOutOfStock), outcome.Status)
	assert.NotEmpty(t, outcome.Message)
}

func TestExhaustionWithCandidatesIsFailed(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-1", StockOnHand: 20})

	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}}}
	probe := newFakeProbe()
	probe.errs["wh-1"] = domain.ErrNodeUnavailable

	router, sagas, _, forwarder := newTestRouter(cache, topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))

	stored, err := sagas.FindByOrderID(ctx, saga.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Notes)

	require.Len(t, forwarder.forwarded["origin-1"], 1)
	assert.Equal(t, string(domain.StatusFailed), forwarder.forwarded["origin-1"][0].Status)
}

func TestSelectionPolicyFiltersCandidates(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-1", StockOnHand: 50, Price: 9.0})
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-2", StockOnHand: 20, Price: 2.0})

	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}, {ID: "wh-2"}}}
	probe := newFakeProbe()
	probe.results["wh-1"] = &port.ProbeResult{NodeID: "wh-1", Price: 9.0}
	probe.results["wh-2"] = &port.ProbeResult{NodeID: "wh-2", Price: 2.0}

	policy, err := NewSelectionPolicy(`price < 5.0`)
	require.NoError(t, err)

	sagas := newFakeSagaRepo()
	router := NewRouterService(sagas, cache, topology, probe, newFakeDispatcher(), newFakeForwarder(), policy,
		time.Second, noop.NewTracerProvider().Tracer("test"))
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))

	// wh-1 库存更深但被策略挡掉，成交落在 wh-2
	stored, err := sagas.FindByOrderID(ctx, saga.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "wh-2", *stored.NodeID)
}

func TestDuplicateOrderAcceptedIsAbsorbed(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-1", StockOnHand: 20})

	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}}}
	probe := newFakeProbe()
	probe.results["wh-1"] = &port.ProbeResult{NodeID: "wh-1", Price: 2.5}

	router, sagas, dispatcher, _ := newTestRouter(cache, topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))
	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))

	assert.Len(t, dispatcher.routed["wh-1"], 1)
	assert.Len(t, probe.probed, 1)
}

func TestOrdersTotalCountsOnlyTerminalStates(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	_ = cache.Update(ctx, domain.CachedStockEntry{ProductID: 42, NodeID: "wh-1", StockOnHand: 20})
	topology := &fakeTopology{nodes: []port.Node{{ID: "wh-1"}}}
	probe := newFakeProbe()
	probe.results["wh-1"] = &port.ProbeResult{NodeID: "wh-1", Price: 2.5}

	router, sagas, _, _ := newTestRouter(cache, topology, probe)
	saga := acceptOrder(t, router, sagas, 42, 5)

	routedBefore := testutil.ToFloat64(ordersTotal.WithLabelValues(string(domain.StatusRouted)))
	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))
	// 派单成功不是终态，结果还要等节点回报，不计入 orders_total
	assert.Equal(t, routedBefore, testutil.ToFloat64(ordersTotal.WithLabelValues(string(domain.StatusRouted))))

	rejecting := newFakeProbe()
	rejecting.errs["wh-1"] = domain.ErrInsufficientStock
	router, sagas, _, _ = newTestRouter(newFakeCache(), topology, rejecting)
	saga = acceptOrder(t, router, sagas, 42, 5)

	oosBefore := testutil.ToFloat64(ordersTotal.WithLabelValues(string(domain.StatusOutOfStock)))
	require.NoError(t, router.HandleOrderAccepted(ctx, &events.OrderAccepted{OrderID: saga.OrderID}))
	assert.Equal(t, oosBefore+1, testutil.ToFloat64(ordersTotal.WithLabelValues(string(domain.StatusOutOfStock))))
}

func TestUnknownOrderAcceptedIsDropped(t *testing.T) {
	router, _, _, _ := newTestRouter(newFakeCache(), &fakeTopology{}, newFakeProbe())
	err := router.HandleOrderAccepted(context.Background(), &events.OrderAccepted{OrderID: "ORD-GHOST"})
	assert.NoError(t, err)
}
