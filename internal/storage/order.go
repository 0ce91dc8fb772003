package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linemk/ace-store/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrder вставляет заказ в таблицу orders внутри транзакции и возвращает его id.
	CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	// CreateOrderItems вставляет позиции заказа внутри той же транзакции.
	CreateOrderItems(ctx context.Context, tx *sql.Tx, orderID int64, items []*models.OrderItem) error
	// SetOrderPaidTx переводит заказ в статус paid (статус и payment_status разом).
	SetOrderPaidTx(ctx context.Context, tx *sql.Tx, orderID int64) error
	// GetOrderByID возвращает заказ по id.
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	// GetOrdersByUserID возвращает заказы пользователя с позициями, с JOIN для имени товара.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

// CreateOrder вставляет новый заказ в таблицу orders. Адрес доставки
// сохраняется снимком в jsonb-колонке, как и пришёл в момент заказа.
func (r *orderRepository) CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	query := `INSERT INTO orders (order_number, user_id, status, payment_status, payment_method,
	                              total_cents, currency, customer_email, shipping_address, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	          RETURNING id`
	var id int64
	err = tx.QueryRowContext(ctx, query,
		order.OrderNumber, order.UserID, order.Status, order.PaymentStatus, order.PaymentMethod,
		order.TotalCents, order.Currency, order.CustomerEmail, shipping,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

// CreateOrderItems вставляет позиции заказа в таблицу order_items.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx *sql.Tx, orderID int64, items []*models.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, size, qty, price_cents)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, query, orderID, item.ProductID, item.Size, item.Quantity, item.PriceCents); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

// SetOrderPaidTx помечает заказ оплаченным. Вызывается только из Webhook Reconciler.
func (r *orderRepository) SetOrderPaidTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	query := `UPDATE orders SET status = $1, payment_status = $2 WHERE id = $3`
	res, err := tx.ExecContext(ctx, query, models.OrderStatusPaid, models.PaymentStatusPaid, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetOrderByID возвращает заказ по id (без позиций).
func (r *orderRepository) GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	query := `SELECT id, order_number, user_id, status, payment_status, payment_method,
	                 total_cents, currency, customer_email, shipping_address, created_at
	          FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// GetOrdersByUserID возвращает заказы пользователя вместе с позициями.
func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `SELECT id, order_number, user_id, status, payment_status, payment_method,
	                 total_cents, currency, customer_email, shipping_address, created_at
	          FROM orders WHERE user_id = $1
	          ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	byID := make(map[int64]*models.Order)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemsQuery := `
		SELECT i.id, i.order_id, i.product_id, p.name, i.size, i.qty, i.price_cents
		FROM order_items i
		JOIN products p ON i.product_id = p.id
		JOIN orders o ON i.order_id = o.id
		WHERE o.user_id = $1
		ORDER BY i.id`
	itemRows, err := r.db.QueryContext(ctx, itemsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := &models.OrderItem{}
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Size, &item.Quantity, &item.PriceCents); err != nil {
			return nil, err
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// scanner покрывает и *sql.Row, и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*models.Order, error) {
	order := &models.Order{}
	var shipping []byte
	if err := row.Scan(&order.ID, &order.OrderNumber, &order.UserID, &order.Status, &order.PaymentStatus,
		&order.PaymentMethod, &order.TotalCents, &order.Currency, &order.CustomerEmail, &shipping, &order.CreatedAt); err != nil {
		return nil, err
	}
	if len(shipping) > 0 {
		if err := json.Unmarshal(shipping, &order.Shipping); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shipping address: %w", err)
		}
	}
	return order, nil
}
