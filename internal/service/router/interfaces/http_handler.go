// internal/service/router/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"stockmesh/internal/service/router/application"
	"stockmesh/internal/service/router/domain"
	"stockmesh/internal/service/router/infrastructure"
)

const serviceName = "order-router"

// RouterHandler 是路由服务的 HTTP 外围：下单入口、订单查询和缓存快照。
type RouterHandler struct {
	router *application.RouterService
	cache  domain.CandidateCache
	feed   *infrastructure.StockFeedHub
}

func NewRouterHandler(router *application.RouterService, cache domain.CandidateCache, feed *infrastructure.StockFeedHub) *RouterHandler {
	return &RouterHandler{router: router, cache: cache, feed: feed}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *RouterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/orders", h.ordersHandler)
	mux.HandleFunc("/inventory/snapshot", h.snapshotHandler)
	if h.feed != nil {
		mux.HandleFunc("/ws/stock", h.feed.ServeWS)
	}
}

type createOrderRequest struct {
	OriginID    string `json:"originId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

func (h *RouterHandler) ordersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	switch r.Method {
	case http.MethodPost:
		ctx, span := otel.Tracer(serviceName).Start(ctx, "router.AcceptOrder")
		defer span.End()

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
			req.OriginID == "" || req.ProductID == 0 || req.Quantity <= 0 {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		span.SetAttributes(
			attribute.String("origin.id", req.OriginID),
			attribute.Int64("product.id", req.ProductID),
			attribute.Int("quantity", req.Quantity),
		)

		saga, err := h.router.CreateOrder(ctx, req.OriginID, req.ProductID, req.ProductName, req.Quantity)
		if err != nil {
			span.RecordError(err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusAccepted, saga)

	case http.MethodGet:
		h.queryOrders(ctx, w, r)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *RouterHandler) queryOrders(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if orderID := query.Get("orderId"); orderID != "" {
		saga, err := h.router.Order(ctx, orderID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrSagaNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, saga)
		return
	}

	if status := query.Get("status"); status != "" {
		sagas, err := h.router.OrdersByStatus(ctx, domain.Status(status))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sagas)
		return
	}

	if originID := query.Get("originId"); originID != "" {
		sagas, err := h.router.OrdersByOrigin(ctx, originID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, sagas)
		return
	}

	http.Error(w, "orderId, status or originId query parameter required", http.StatusBadRequest)
}

// snapshotHandler 暴露缓存全量视图，调试和运维用。
func (h *RouterHandler) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snapshot, err := h.cache.Snapshot(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
