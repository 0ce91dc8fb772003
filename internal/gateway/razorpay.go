package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

var (
	// ErrTimeout — провайдер не ответил за отведённый таймаут; клиент может повторить.
	ErrTimeout = errors.New("payment provider timed out")
	// ErrRejected — провайдер отверг запрос или недоступен (всё, что не таймаут).
	ErrRejected = errors.New("payment provider rejected the request")
)

// ProviderOrder — платёжное намерение на стороне провайдера. ID нужен
// клиентскому виджету оплаты и вебхуку для сопоставления.
type ProviderOrder struct {
	ID          string `json:"id"`
	AmountCents int    `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// PaymentGateway описывает создание платёжного намерения у провайдера.
type PaymentGateway interface {
	CreateProviderOrder(ctx context.Context, amountCents int, currency, receipt string) (*ProviderOrder, error)
}

// razorpayGateway — адаптер Razorpay Orders API.
type razorpayGateway struct {
	log       *slog.Logger
	client    *http.Client
	baseURL   string
	keyID     string
	keySecret string
	timeout   time.Duration
}

// NewRazorpayGateway создаёт адаптер. timeout ограничивает каждый вызов
// провайдера целиком (соединение + ответ).
func NewRazorpayGateway(log *slog.Logger, baseURL, keyID, keySecret string, timeout time.Duration) PaymentGateway {
	return &razorpayGateway{
		log:       log,
		client:    &http.Client{},
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		timeout:   timeout,
	}
}

// createOrderRequest — тело запроса к POST /v1/orders
type createOrderRequest struct {
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateProviderOrder создаёт провайдерский заказ на сумму amountCents.
// Таймаут и отказ провайдера различаются: вызывающий транслирует их
// в 504 и 502 соответственно.
func (g *razorpayGateway) CreateProviderOrder(ctx context.Context, amountCents int, currency, receipt string) (*ProviderOrder, error) {
	const op = "gateway.Razorpay.CreateProviderOrder"
	logger := g.log.With(slog.String("op", op), slog.String("receipt", receipt))

	body, err := json.Marshal(createOrderRequest{Amount: amountCents, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Error("provider call timed out", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, ErrTimeout)
		}
		logger.Error("provider call failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Error("provider rejected order",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)),
		)
		return nil, fmt.Errorf("%s: %w: status %d", op, ErrRejected, resp.StatusCode)
	}

	var order ProviderOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%s: %w: failed to decode response: %v", op, ErrRejected, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%s: %w: empty provider order id", op, ErrRejected)
	}

	logger.Info("provider order created", slog.String("providerOrderID", order.ID))
	return &order, nil
}

// isTimeout различает истёкший дедлайн и прочие сетевые ошибки.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
