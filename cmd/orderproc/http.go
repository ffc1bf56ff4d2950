package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oakline-labs/orderproc/internal/intake"
	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/stock"
)

// httpHandler serves the submission and retrieval API (spec §6). Auth is
// out of scope; the authenticated user is derived from request headers
// that a real deployment's edge/gateway layer would have already verified.
type httpHandler struct {
	intake *intake.Intake
	orders orders.Store
	stock  stock.Store
	logger *slog.Logger
}

func startSubmissionServer(log *slog.Logger, in *intake.Intake, orderStore orders.Store, stockStore stock.Store) {
	h := &httpHandler{intake: in, orders: orderStore, stock: stockStore, logger: log}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", h.handleCreateOrder)
	mux.HandleFunc("GET /orders", h.handleListOrders)
	mux.HandleFunc("GET /orders/{id}", h.handleGetOrder)

	addr := ":8080"
	go func() {
		log.Info("starting submission API", slog.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("submission API stopped", slog.Any("err", err))
		}
	}()
}

func userFromRequest(r *http.Request) intake.User {
	return intake.User{
		ID:    r.Header.Get("X-User-Id"),
		IsVIP: r.Header.Get("X-User-Vip") == "true",
	}
}

type createOrderRequest struct {
	StockID         string  `json:"stockId"`
	Quantity        int64   `json:"quantity"`
	PriceAtPurchase float64 `json:"priceAtPurchase"`
}

func (h *httpHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user := userFromRequest(r)
	if user.ID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := h.intake.Submit(r.Context(), user, intake.Request{
		StockID:         req.StockID,
		Quantity:        req.Quantity,
		PriceAtPurchase: req.PriceAtPurchase,
	})
	if err != nil {
		if errors.Is(err, intake.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("order submission failed", slog.String("user_id", user.ID), slog.Any("err", err))
		http.Error(w, "failed to submit order", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(r.Context(), order))
}

func (h *httpHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get order failed", slog.String("order_id", id), slog.Any("err", err))
		http.Error(w, "failed to get order", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.toResponse(r.Context(), order))
}

func (h *httpHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	user := userFromRequest(r)
	if user.ID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.orders.ListOrdersByUser(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list orders failed", slog.String("user_id", user.ID), slog.Any("err", err))
		http.Error(w, "failed to list orders", http.StatusInternalServerError)
		return
	}

	res := make([]orderResponse, len(list))
	for i, o := range list {
		res[i] = h.toResponse(r.Context(), o)
	}
	writeJSON(w, http.StatusOK, res)
}

// orderResponse is the wire shape for an order (spec §6 Retrieval API).
type orderResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	ProductName     string    `json:"productName"`
	ProductDesc     string    `json:"productDescription"`
	AvailableStock  int64     `json:"availableStock"`
	StockID         string    `json:"stockId"`
	Quantity        int64     `json:"quantity"`
	PriceAtPurchase float64   `json:"priceAtPurchase"`
	Status          string    `json:"status"`
	IsVIPOrder      bool      `json:"isVipOrder"`
	FailureReason   string    `json:"failureReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// toResponse joins an order with its stock record for the catalog fields
// spec §6 requires (productName, productDescription, availableStock). A
// failed lookup (e.g. the stock was since deleted) is logged and leaves
// those fields blank rather than failing the whole request.
func (h *httpHandler) toResponse(ctx context.Context, o orders.Order) orderResponse {
	res := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		StockID:         o.StockID,
		Quantity:        o.Quantity,
		PriceAtPurchase: o.PriceAtPurchase,
		Status:          string(o.Status),
		IsVIPOrder:      o.IsVIP,
		FailureReason:   o.FailureReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}

	st, err := h.stock.ReadStock(ctx, o.StockID)
	if err != nil {
		h.logger.Warn("failed to join stock for order response",
			slog.String("order_id", o.ID), slog.String("stock_id", o.StockID), slog.Any("err", err))
		return res
	}
	res.ProductName = st.Name
	res.ProductDesc = st.Description
	res.AvailableStock = st.Quantity
	return res
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
