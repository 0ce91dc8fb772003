package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/ace-store/internal/domain/models"
	"github.com/linemk/ace-store/internal/gateway"
	"github.com/linemk/ace-store/internal/storage"
)

const providerName = "razorpay"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrProductUnavailable = errors.New("product is unavailable")
)

// CartItem — позиция корзины, как её прислал клиент. Цены здесь нет
// намеренно: цена всегда берётся из каталога на сервере.
type CartItem struct {
	ProductID int64
	Quantity  int
	Size      *string
}

// CreateOrderInput — всё, что нужно для оформления заказа.
type CreateOrderInput struct {
	Cart          []CartItem
	Shipping      models.ShippingAddress
	CustomerEmail string
	PaymentMethod string // cod | gateway
}

// OrderResult — результат оформления. ProviderIntent заполнен только
// для gateway-заказов.
type OrderResult struct {
	OrderID        int64
	OrderNumber    string
	ProviderIntent *gateway.ProviderOrder
}

// OrderService — сервис приёма заказов.
type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*OrderResult, error)
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
}

type orderService struct {
	log           *slog.Logger
	db            *sql.DB
	productRepo   storage.ProductStorage
	inventoryRepo storage.InventoryStorage
	orderRepo     storage.OrderStorage
	paymentRepo   storage.PaymentStorage
	gw            gateway.PaymentGateway
	notifier      Notifier
}

func NewOrderService(
	log *slog.Logger,
	db *sql.DB,
	productRepo storage.ProductStorage,
	inventoryRepo storage.InventoryStorage,
	orderRepo storage.OrderStorage,
	paymentRepo storage.PaymentStorage,
	gw gateway.PaymentGateway,
	notifier Notifier,
) OrderService {
	return &orderService{
		log:           log,
		db:            db,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		gw:            gw,
		notifier:      notifier,
	}
}

// CreateOrder оформляет заказ: валидация корзины, серверный пересчёт цены,
// резервирование остатков и вставка заказа с позициями выполняются в одной
// транзакции — при любой ошибке не остаётся частичных эффектов. Обращение
// к платёжному провайдеру происходит уже после коммита: если провайдер
// недоступен, заказ и резерв сохраняются, а клиенту возвращается явная
// ошибка для повторной попытки оплаты.
func (s *orderService) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (*OrderResult, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if len(in.Cart) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	logger.Info("starting order transaction", slog.Int("lines", len(in.Cart)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}

	total := 0
	currency := ""
	items := make([]*models.OrderItem, 0, len(in.Cart))
	for _, line := range in.Cart {
		if line.Quantity < 1 {
			rollback()
			return nil, fmt.Errorf("%s: product %d: %w", op, line.ProductID, ErrInvalidQuantity)
		}

		// Цена и флаги доступности читаются из каталога внутри транзакции;
		// данные клиента о цене не используются вовсе.
		product, err := s.productRepo.GetProductByIDTx(ctx, tx, line.ProductID)
		if err != nil {
			rollback()
			logger.Warn("failed to get product", slog.Int64("productID", line.ProductID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: product %d: %w", op, line.ProductID, err)
		}
		if !product.Available() {
			rollback()
			logger.Warn("product unavailable", slog.Int64("productID", product.ID),
				slog.Bool("locked", product.IsLocked), slog.String("status", product.Status))
			return nil, fmt.Errorf("%s: product %d: %w", op, product.ID, ErrProductUnavailable)
		}

		// Резерв до любых других durable-эффектов: один условный UPDATE,
		// при нехватке остатка вся транзакция откатывается целиком.
		if err := s.inventoryRepo.Reserve(ctx, tx, product.ID, line.Size, line.Quantity); err != nil {
			rollback()
			logger.Warn("failed to reserve stock", slog.Int64("productID", product.ID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: product %d: %w", op, product.ID, err)
		}

		total += product.PriceCents * line.Quantity
		if currency == "" {
			currency = product.Currency
		}
		items = append(items, &models.OrderItem{
			ProductID:  product.ID,
			Size:       line.Size,
			Quantity:   line.Quantity,
			PriceCents: product.PriceCents,
		})
	}

	status := models.OrderStatusPending
	if in.PaymentMethod == models.PaymentMethodCOD {
		// COD сразу уходит в обработку, оплата остаётся pending до курьера
		status = models.OrderStatusProcessing
	}

	order := &models.Order{
		OrderNumber:   newOrderNumber(),
		UserID:        userID,
		Status:        status,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: in.PaymentMethod,
		TotalCents:    total,
		Currency:      currency,
		CustomerEmail: in.CustomerEmail,
		Shipping:      in.Shipping,
	}

	orderID, err := s.orderRepo.CreateOrder(ctx, tx, order)
	if err != nil {
		rollback()
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = orderID

	if err := s.orderRepo.CreateOrderItems(ctx, tx, orderID, items); err != nil {
		rollback()
		logger.Error("failed to create order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order items: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger = logger.With(slog.Int64("orderID", orderID), slog.String("orderNumber", order.OrderNumber))
	logger.Info("order committed", slog.Int("totalCents", total))

	switch in.PaymentMethod {
	case models.PaymentMethodCOD:
		s.notifier.OrderConfirmed(order)
		return &OrderResult{OrderID: orderID, OrderNumber: order.OrderNumber}, nil

	case models.PaymentMethodGateway:
		// Заказ уже зафиксирован; компенсирующего снятия резерва при отказе
		// провайдера нет — состояние "заказ есть, оплата не началась"
		// восстановимо повторной попыткой оплаты.
		intent, err := s.gw.CreateProviderOrder(ctx, total, currency, order.OrderNumber)
		if err != nil {
			logger.Error("provider order creation failed, order kept", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		payment := &models.Payment{
			OrderID:         orderID,
			Provider:        providerName,
			ProviderOrderID: intent.ID,
			Status:          models.PaymentCreated,
			AmountCents:     total,
		}
		if _, err := s.paymentRepo.CreatePayment(ctx, payment); err != nil {
			logger.Error("failed to record payment, order kept", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to record payment: %w", op, err)
		}

		logger.Info("payment intent created", slog.String("providerOrderID", intent.ID))
		return &OrderResult{OrderID: orderID, OrderNumber: order.OrderNumber, ProviderIntent: intent}, nil

	default:
		return nil, fmt.Errorf("%s: unknown payment method %q", op, in.PaymentMethod)
	}
}

// ListOrders возвращает заказы пользователя с позициями.
func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// newOrderNumber генерирует человекочитаемый номер заказа вида ACE-1B9D6BCD
func newOrderNumber() string {
	id := uuid.New().String()
	return "ACE-" + strings.ToUpper(id[:8])
}
