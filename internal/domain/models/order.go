package models

import "time"

// Статусы заказа: pending -> processing/paid -> shipped -> delivered, либо cancelled
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusPaid       = "paid"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Статусы оплаты заказа
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Способы оплаты
const (
	PaymentMethodCOD     = "cod"     // наложенный платёж, без провайдера
	PaymentMethodGateway = "gateway" // карта/UPI через платёжный шлюз
)

// ShippingAddress — адрес доставки, сохраняется снимком внутри заказа.
type ShippingAddress struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// Order представляет заказ покупателя.
// Инвариант: TotalCents всегда равен сумме price_cents * qty его позиций,
// посчитанной на сервере в момент создания.
type Order struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        int64           `json:"user_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	TotalCents    int             `json:"total_cents"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Shipping      ShippingAddress `json:"shipping"`
	Items         []*OrderItem    `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderItem — позиция заказа. PriceCents — снимок цены на момент заказа,
// он никогда не пересчитывается, поэтому исторические заказы не зависят
// от будущих изменений цен.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"` // Заполняется через JOIN с таблицей products
	Size        *string `json:"size,omitempty"`
	Quantity    int     `json:"quantity"`
	PriceCents  int     `json:"price_cents"`
}
