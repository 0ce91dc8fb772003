package service

import (
	"fmt"
	"log/slog"

	"github.com/linemk/ace-store/internal/domain/models"
	"github.com/linemk/ace-store/internal/mailer"
)

// Notifier — best-effort уведомления покупателю и оператору магазина.
// Ошибки отправки проглатываются и логируются: они никогда не влияют
// на результат создания заказа или обработки платежа.
type Notifier interface {
	OrderConfirmed(order *models.Order)
	PaymentReceived(order *models.Order)
}

type emailNotifier struct {
	log           *slog.Logger
	sender        mailer.Sender
	operatorEmail string
}

// NewEmailNotifier создаёт диспетчер уведомлений поверх почтового отправителя.
func NewEmailNotifier(log *slog.Logger, sender mailer.Sender, operatorEmail string) Notifier {
	return &emailNotifier{
		log:           log,
		sender:        sender,
		operatorEmail: operatorEmail,
	}
}

// OrderConfirmed отправляется после фиксации заказа (COD-ветка).
func (n *emailNotifier) OrderConfirmed(order *models.Order) {
	const op = "service.Notifier.OrderConfirmed"
	subject := fmt.Sprintf("Order %s confirmed", order.OrderNumber)
	body := fmt.Sprintf(
		"Your order %s has been received.\nTotal: %d.%02d %s\nYou can track it in your account.",
		order.OrderNumber, order.TotalCents/100, order.TotalCents%100, order.Currency,
	)
	n.deliver(op, order, subject, body)
}

// PaymentReceived отправляется после подтверждения оплаты вебхуком.
func (n *emailNotifier) PaymentReceived(order *models.Order) {
	const op = "service.Notifier.PaymentReceived"
	subject := fmt.Sprintf("Payment received for order %s", order.OrderNumber)
	body := fmt.Sprintf(
		"Payment for order %s has been confirmed.\nTotal: %d.%02d %s",
		order.OrderNumber, order.TotalCents/100, order.TotalCents%100, order.Currency,
	)
	n.deliver(op, order, subject, body)
}

// deliver шлёт письмо покупателю и копию оператору; любая ошибка — только в лог.
func (n *emailNotifier) deliver(op string, order *models.Order, subject, body string) {
	logger := n.log.With(slog.String("op", op), slog.String("orderNumber", order.OrderNumber))

	if order.CustomerEmail != "" {
		if err := n.sender.Send(order.CustomerEmail, subject, body); err != nil {
			logger.Warn("failed to notify customer", slog.Any("error", err))
		}
	}
	if n.operatorEmail != "" {
		if err := n.sender.Send(n.operatorEmail, subject, body); err != nil {
			logger.Warn("failed to notify operator", slog.Any("error", err))
		}
	}
}
