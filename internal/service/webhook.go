package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/ace-store/internal/domain/models"
	"github.com/linemk/ace-store/internal/storage"
)

// WebhookService — сверка асинхронных событий платёжного провайдера
// с локальным состоянием платежей и заказов.
type WebhookService interface {
	// ProcessCaptured обрабатывает событие "платёж захвачен" для платёжного
	// намерения providerOrderID. Возвращает alreadyPaid == true, если платёж
	// уже был в статусе paid (повторная доставка — состояние не меняется).
	// Для неизвестного намерения возвращает storage.ErrPaymentNotFound.
	ProcessCaptured(ctx context.Context, providerOrderID string, entity json.RawMessage) (alreadyPaid bool, err error)
}

type webhookService struct {
	log         *slog.Logger
	db          *sql.DB
	paymentRepo storage.PaymentStorage
	orderRepo   storage.OrderStorage
	notifier    Notifier
}

func NewWebhookService(
	log *slog.Logger,
	db *sql.DB,
	paymentRepo storage.PaymentStorage,
	orderRepo storage.OrderStorage,
	notifier Notifier,
) WebhookService {
	return &webhookService{
		log:         log,
		db:          db,
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		notifier:    notifier,
	}
}

// ProcessCaptured выполняет переход payment created -> paid и помечает заказ
// оплаченным в одной транзакции. Строка платежа читается под FOR UPDATE:
// конкурентные доставки одного события сериализуются, и переход выполняется
// ровно один раз — провайдер может безопасно повторять доставку.
func (s *webhookService) ProcessCaptured(ctx context.Context, providerOrderID string, entity json.RawMessage) (bool, error) {
	const op = "service.WebhookService.ProcessCaptured"
	logger := s.log.With(slog.String("op", op), slog.String("providerOrderID", providerOrderID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
	}

	payment, err := s.paymentRepo.LockByProviderOrderIDTx(ctx, tx, providerOrderID)
	if err != nil {
		rollback()
		if errors.Is(err, storage.ErrPaymentNotFound) {
			// Событие могло прийти раньше локальной записи или относиться
			// к чужому намерению; это не повод гонять ретраи провайдера.
			logger.Warn("payment not found for provider order")
			return false, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to lock payment", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to lock payment: %w", op, err)
	}

	if payment.Status == models.PaymentPaid {
		rollback()
		logger.Info("duplicate delivery, payment already paid", slog.Int64("paymentID", payment.ID))
		return true, nil
	}

	if err := s.paymentRepo.MarkPaidTx(ctx, tx, payment.ID, entity); err != nil {
		rollback()
		logger.Error("failed to mark payment paid", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to mark payment paid: %w", op, err)
	}

	if err := s.orderRepo.SetOrderPaidTx(ctx, tx, payment.OrderID); err != nil {
		rollback()
		logger.Error("failed to mark order paid", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to mark order paid: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("payment reconciled", slog.Int64("paymentID", payment.ID), slog.Int64("orderID", payment.OrderID))

	// Письма — после коммита и строго best-effort
	if order, err := s.orderRepo.GetOrderByID(ctx, payment.OrderID); err != nil {
		logger.Warn("failed to load order for notification", slog.Any("error", err))
	} else {
		s.notifier.PaymentReceived(order)
	}

	return false, nil
}
