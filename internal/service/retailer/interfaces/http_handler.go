// internal/service/retailer/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockmesh/internal/service/retailer/application"
	"stockmesh/internal/service/retailer/domain"
)

// RetailerHandler 是发起方的 HTTP 外围：补货、销售和各类查询。
type RetailerHandler struct {
	retailer *application.RetailerService
}

func NewRetailerHandler(retailer *application.RetailerService) *RetailerHandler {
	return &RetailerHandler{retailer: retailer}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *RetailerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/restock", h.restockHandler)
	mux.HandleFunc("/sell", h.sellHandler)
	mux.HandleFunc("/inventory", h.inventoryHandler)
	mux.HandleFunc("/inventory/history", h.historyHandler)
	mux.HandleFunc("/orders", h.ordersHandler)
	mux.HandleFunc("/sales", h.salesHandler)
}

type restockRequest struct {
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

func (h *RetailerHandler) restockHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req restockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 || req.Quantity <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	tracking, err := h.retailer.BuyFromWarehouse(ctx, req.ProductID, req.ProductName, req.Quantity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusAccepted, tracking)
}

type sellRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *RetailerHandler) sellHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 || req.Quantity <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sale, err := h.retailer.SellToCustomer(ctx, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotInInventory):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrInsufficientStock):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *RetailerHandler) inventoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	invs, err := h.retailer.Inventory(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

func (h *RetailerHandler) historyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	id, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid productId", http.StatusBadRequest)
		return
	}
	records, err := h.retailer.ProductHistory(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *RetailerHandler) ordersHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if orderID := r.URL.Query().Get("orderId"); orderID != "" {
		tracking, err := h.retailer.Order(ctx, orderID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrTrackingNotFound) {
				status = http.StatusNotFound
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, http.StatusOK, tracking)
		return
	}
	trackings, err := h.retailer.Orders(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trackings)
}

func (h *RetailerHandler) salesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sales, err := h.retailer.Sales(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
