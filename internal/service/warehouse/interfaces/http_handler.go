// internal/service/warehouse/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"stockmesh/internal/service/warehouse/application"
	"stockmesh/internal/service/warehouse/domain"
)

const serviceName = "warehouse-node"

// LedgerHandler 封装了仓库节点的 HTTP 处理器。
// 这些是外围适配器：入参校验在这里完成，核心逻辑都在应用层。
type LedgerHandler struct {
	ledger *application.LedgerService
}

// NewLedgerHandler 创建一个新的 HTTP 处理器实例。
func NewLedgerHandler(ledger *application.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *LedgerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/purchase/check", h.purchaseCheckHandler)
	mux.HandleFunc("/items", h.itemsHandler)
	mux.HandleFunc("/items/adjust", h.adjustHandler)
	mux.HandleFunc("/items/history", h.historyHandler)
	mux.HandleFunc("/items/audit", h.auditHandler)
}

// purchaseCheckRequest 是路由层同步探测的请求体。
type purchaseCheckRequest struct {
	ProductID      int64  `json:"productId"`
	Quantity       int    `json:"quantity"`
	CounterpartyID string `json:"counterpartyId"`
}

// purchaseCheckResponse 带回价格和假定成交后的剩余库存。
// 探测不做任何变更；权威扣减只发生在订单消费路径上。
type purchaseCheckResponse struct {
	NodeID     string  `json:"nodeId"`
	ProductID  int64   `json:"productId"`
	Price      float64 `json:"price"`
	StockAfter int     `json:"stockAfter"`
}

func (h *LedgerHandler) purchaseCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "warehouse.PurchaseCheck")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req purchaseCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 || req.Quantity <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Int64("product.id", req.ProductID),
		attribute.Int("quantity", req.Quantity),
		attribute.String("counterparty.id", req.CounterpartyID),
	)

	item, err := h.ledger.Item(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			http.Error(w, "product not stocked at this node", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !item.CanSell(req.Quantity) {
		http.Error(w, "insufficient stock", http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, purchaseCheckResponse{
		NodeID:     h.ledger.NodeID(),
		ProductID:  item.ID,
		Price:      item.Price,
		StockAfter: item.StockOnHand - req.Quantity,
	})
}

type addStockRequest struct {
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

func (h *LedgerHandler) itemsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	switch r.Method {
	case http.MethodPost:
		var req addStockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductName == "" || req.Quantity <= 0 {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		item, err := h.ledger.AddStock(ctx, req.ProductName, req.Quantity, req.Price)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	case http.MethodGet:
		if idStr := r.URL.Query().Get("id"); idStr != "" {
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				http.Error(w, "invalid id", http.StatusBadRequest)
				return
			}
			item, err := h.ledger.Item(ctx, id)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, domain.ErrItemNotFound) {
					status = http.StatusNotFound
				}
				http.Error(w, err.Error(), status)
				return
			}
			writeJSON(w, http.StatusOK, item)
			return
		}
		items, err := h.ledger.Items(ctx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, items)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type adjustRequest struct {
	ProductID   int64 `json:"productId"`
	NewQuantity int   `json:"newQuantity"`
}

func (h *LedgerHandler) adjustHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 || req.NewQuantity < 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	item, err := h.ledger.Adjust(ctx, req.ProductID, req.NewQuantity)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrItemNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *LedgerHandler) historyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if idStr := r.URL.Query().Get("productId"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid productId", http.StatusBadRequest)
			return
		}
		entries, err := h.ledger.ProductHistory(ctx, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}

	entries, err := h.ledger.NodeHistory(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// auditHandler 重放商品流水并与当前库存比对，暴露审计保证。
func (h *LedgerHandler) auditHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	id, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid productId", http.StatusBadRequest)
		return
	}
	replayed, current, ok, err := h.ledger.AuditProduct(ctx, id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrItemNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"productId":  id,
		"replayed":   replayed,
		"current":    current,
		"consistent": ok,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
