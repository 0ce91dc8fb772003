package models

import (
	"encoding/json"
	"time"
)

// Статусы платежа. Переход строго однонаправленный: created -> paid,
// платёж в статусе paid никогда не откатывается назад.
const (
	PaymentCreated = "created"
	PaymentPaid    = "paid"
)

// Payment представляет попытку оплаты заказа через внешнего провайдера.
// ProviderOrderID — идентификатор, который провайдер присвоил своему
// платёжному намерению; по нему вебхук находит локальную запись.
type Payment struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	Provider        string          `json:"provider"`
	ProviderOrderID string          `json:"provider_order_id"`
	Status          string          `json:"status"`
	AmountCents     int             `json:"amount_cents"`
	Metadata        json.RawMessage `json:"metadata,omitempty"` // Сырой payload провайдера, как есть
	CreatedAt       time.Time       `json:"created_at"`
}
