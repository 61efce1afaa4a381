// internal/service/router/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockmesh_router_orders_total",
		Help: "Orders by terminal routing result.",
	}, []string{"result"})

	cacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockmesh_router_cache_evictions_total",
		Help: "Cache entries evicted after failed purchase attempts.",
	})

	fallbackProbesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockmesh_router_fallback_probes_total",
		Help: "Direct node probes issued because the cache was empty or exhausted.",
	})
)
