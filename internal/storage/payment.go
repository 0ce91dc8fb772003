package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/ace-store/internal/domain/models"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentExists   = errors.New("payment already exists")
)

// PaymentStorage описывает методы для работы с платежами.
// Записи создаёт Payment Gateway Adapter, изменяет — только Webhook Reconciler.
type PaymentStorage interface {
	// CreatePayment записывает платёж в статусе created после успешного
	// ответа провайдера.
	CreatePayment(ctx context.Context, payment *models.Payment) (int64, error)
	// LockByProviderOrderIDTx находит платёж по id платёжного намерения
	// провайдера и блокирует строку (FOR UPDATE) до конца транзакции,
	// чтобы конкурентные доставки одного вебхука сериализовались.
	LockByProviderOrderIDTx(ctx context.Context, tx *sql.Tx, providerOrderID string) (*models.Payment, error)
	// MarkPaidTx переводит платёж created -> paid и сохраняет payload провайдера.
	MarkPaidTx(ctx context.Context, tx *sql.Tx, paymentID int64, metadata []byte) error
}

// paymentRepository — конкретная реализация PaymentStorage.
type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт новый репозиторий платежей.
func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

// CreatePayment вставляет платёж. provider_order_id уникален: повторная
// вставка для того же намерения провайдера превращается в ErrPaymentExists.
func (r *paymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) (int64, error) {
	query := `INSERT INTO payments (order_id, provider, provider_order_id, status, amount_cents, created_at)
	          VALUES ($1, $2, $3, $4, $5, NOW())
	          RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		payment.OrderID, payment.Provider, payment.ProviderOrderID, payment.Status, payment.AmountCents,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return 0, ErrPaymentExists
		}
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}
	return id, nil
}

// LockByProviderOrderIDTx читает платёж под строчной блокировкой.
func (r *paymentRepository) LockByProviderOrderIDTx(ctx context.Context, tx *sql.Tx, providerOrderID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT id, order_id, provider, provider_order_id, status, amount_cents, created_at
	          FROM payments WHERE provider_order_id = $1 FOR UPDATE`
	row := tx.QueryRowContext(ctx, query, providerOrderID)
	if err := row.Scan(&payment.ID, &payment.OrderID, &payment.Provider, &payment.ProviderOrderID,
		&payment.Status, &payment.AmountCents, &payment.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// MarkPaidTx выполняет переход created -> paid. Условие status <> 'paid'
// делает переход однонаправленным даже при гонке доставок.
func (r *paymentRepository) MarkPaidTx(ctx context.Context, tx *sql.Tx, paymentID int64, metadata []byte) error {
	query := `UPDATE payments SET status = $1, metadata = $2 WHERE id = $3 AND status <> $1`
	res, err := tx.ExecContext(ctx, query, models.PaymentPaid, metadata, paymentID)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
