package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/ace-store/internal/domain/models"
	"github.com/linemk/ace-store/internal/gateway"
	"github.com/linemk/ace-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/ace-store/internal/service"
	"github.com/linemk/ace-store/internal/storage"
)

// CartItemRequest — позиция корзины из запроса. Поля цены здесь нет:
// даже если клиент его пришлёт, оно не будет прочитано.
type CartItemRequest struct {
	ID   int64  `json:"id" validate:"required"`
	Qty  int    `json:"qty" validate:"required,min=1"`
	Size string `json:"size,omitempty"`
}

// CreateOrderRequest — структура запроса POST /create-order с тегами валидации
type CreateOrderRequest struct {
	Cart          []CartItemRequest      `json:"cart" validate:"required,min=1,dive"`
	Shipping      models.ShippingAddress `json:"shipping"`
	Email         string                 `json:"email" validate:"omitempty,email"`
	PaymentMethod string                 `json:"payment_method" validate:"required,oneof=cod gateway"`
}

// CreateOrderResponse — ответ при успешном оформлении. ProviderIntent
// присутствует только для gateway-заказов.
type CreateOrderResponse struct {
	OrderID        int64                  `json:"orderId"`
	OrderNumber    string                 `json:"orderNumber"`
	ProviderIntent *gateway.ProviderOrder `json:"providerIntent,omitempty"`
}

var validate = validator.New()

// CreateOrderHandler обрабатывает запрос POST /create-order
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		// userID кладёт JWT middleware
		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		in := service.CreateOrderInput{
			Cart:          make([]service.CartItem, 0, len(req.Cart)),
			Shipping:      req.Shipping,
			CustomerEmail: req.Email,
			PaymentMethod: req.PaymentMethod,
		}
		for _, line := range req.Cart {
			item := service.CartItem{ProductID: line.ID, Quantity: line.Qty}
			if line.Size != "" {
				size := line.Size
				item.Size = &size
			}
			in.Cart = append(in.Cart, item)
		}

		result, err := orderService.CreateOrder(r.Context(), userID, in)
		if err != nil {
			writeOrderError(w, logger, err)
			return
		}

		resp := CreateOrderResponse{
			OrderID:        result.OrderID,
			OrderNumber:    result.OrderNumber,
			ProviderIntent: result.ProviderIntent,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}

// OrdersHandler обрабатывает запрос GET /orders — история заказов пользователя
func OrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(orders); err != nil {
			logger.Error("failed to encode response", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
}

// writeOrderError переводит ошибку сервиса в HTTP-статус. Ошибки валидации
// возвращаются с конкретным текстом, инфраструктурные — общей фразой,
// детали остаются в серверных логах.
func writeOrderError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		http.Error(w, "cart is empty", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidQuantity):
		http.Error(w, "quantity must be positive", http.StatusBadRequest)
	case errors.Is(err, storage.ErrProductNotFound):
		http.Error(w, "unknown product", http.StatusBadRequest)
	case errors.Is(err, service.ErrProductUnavailable):
		http.Error(w, "product is unavailable", http.StatusBadRequest)
	case errors.Is(err, storage.ErrInsufficientStock):
		http.Error(w, "insufficient stock", http.StatusBadRequest)
	case errors.Is(err, gateway.ErrTimeout):
		logger.Error("gateway timeout", slog.Any("error", err))
		http.Error(w, "payment provider timed out", http.StatusGatewayTimeout)
	case errors.Is(err, gateway.ErrRejected):
		logger.Error("gateway rejected", slog.Any("error", err))
		http.Error(w, "payment provider rejected the request", http.StatusBadGateway)
	default:
		logger.Error("failed to create order", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
