// internal/service/router/application/propagator_test.go
package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"stockmesh/internal/pkg/events"
	"stockmesh/internal/service/router/domain"
)

type fakeForwarder struct {
	mu        sync.Mutex
	forwarded map[string][]events.OrderOutcome
}

func newFakeForwarder() *fakeForwarder {
	return &fakeForwarder{forwarded: make(map[string][]events.OrderOutcome)}
}

func (f *fakeForwarder) ForwardToOrigin(_ context.Context, originID string, event *events.OrderOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwarded[originID] = append(f.forwarded[originID], *event)
	return nil
}

func newRoutedSaga(t *testing.T, sagas *fakeSagaRepo) *domain.OrderSaga {
	t.Helper()
	saga := domain.NewOrderSaga("origin-1", 42, "widget", 3, 0)
	require.NoError(t, saga.MarkRouted("wh-1", 2.5))
	require.NoError(t, sagas.Create(context.Background(), saga))
	return saga
}

func TestOutcomeUpdatesSagaAndForwards(t *testing.T) {
	sagas := newFakeSagaRepo()
	forwarder := newFakeForwarder()
	propagator := NewStatusPropagator(sagas, forwarder, noop.NewTracerProvider().Tracer("test"))
	saga := newRoutedSaga(t, sagas)

	err := propagator.HandleOutcome(context.Background(), &events.OrderOutcome{
		OrderID: saga.OrderID, Status: "COMPLETED", Price: 2.75, Message: "processed",
	})
	require.NoError(t, err)

	stored, err := sagas.FindByOrderID(context.Background(), saga.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, 2.75, stored.Price)

	require.Len(t, forwarder.forwarded["origin-1"], 1)
	out := forwarder.forwarded["origin-1"][0]
	assert.Equal(t, saga.OrderID, out.OrderID)
	assert.Equal(t, "COMPLETED", out.Status)
	assert.Equal(t, 2.75, out.Price)
}

func TestFailedOutcomeForwardsToOrigin(t *testing.T) {
	sagas := newFakeSagaRepo()
	forwarder := newFakeForwarder()
	propagator := NewStatusPropagator(sagas, forwarder, noop.NewTracerProvider().Tracer("test"))
	saga := newRoutedSaga(t, sagas)

	err := propagator.HandleOutcome(context.Background(), &events.OrderOutcome{
		OrderID: saga.OrderID, Status: "FAILED", Message: "insufficient stock",
	})
	require.NoError(t, err)

	stored, _ := sagas.FindByOrderID(context.Background(), saga.OrderID)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	require.Len(t, forwarder.forwarded["origin-1"], 1)
	assert.Equal(t, "FAILED", forwarder.forwarded["origin-1"][0].Status)
}

func TestDuplicateOutcomeForwardedOnlyOnce(t *testing.T) {
	sagas := newFakeSagaRepo()
	forwarder := newFakeForwarder()
	propagator := NewStatusPropagator(sagas, forwarder, noop.NewTracerProvider().Tracer("test"))
	saga := newRoutedSaga(t, sagas)

	outcome := &events.OrderOutcome{OrderID: saga.OrderID, Status: "COMPLETED", Price: 2.5}
	require.NoError(t, propagator.HandleOutcome(context.Background(), outcome))
	require.NoError(t, propagator.HandleOutcome(context.Background(), outcome))

	assert.Len(t, forwarder.forwarded["origin-1"], 1)
}

func TestOutcomeForUnknownOrderIsDropped(t *testing.T) {
	sagas := newFakeSagaRepo()
	forwarder := newFakeForwarder()
	propagator := NewStatusPropagator(sagas, forwarder, noop.NewTracerProvider().Tracer("test"))

	err := propagator.HandleOutcome(context.Background(), &events.OrderOutcome{
		OrderID: "ORD-GHOST", Status: "COMPLETED",
	})
	assert.NoError(t, err)
	assert.Empty(t, forwarder.forwarded)
}

func TestOutcomeForUnroutedSagaIsRejectedWithoutForwarding(t *testing.T) {
	sagas := newFakeSagaRepo()
	forwarder := newFakeForwarder()
	propagator := NewStatusPropagator(sagas, forwarder, noop.NewTracerProvider().Tracer("test"))

	saga := domain.NewOrderSaga("origin-1", 42, "widget", 3, 0)
	require.NoError(t, sagas.Create(context.Background(), saga))

	err := propagator.HandleOutcome(context.Background(), &events.OrderOutcome{
		OrderID: saga.OrderID, Status: "COMPLETED",
	})
	require.NoError(t, err)

	stored, _ := sagas.FindByOrderID(context.Background(), saga.OrderID)
	assert.Equal(t, domain.StatusAccepted, stored.Status)
	assert.Empty(t, forwarder.forwarded)
}
