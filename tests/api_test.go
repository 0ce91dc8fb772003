package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	security "github.com/linemk/ace-store/internal/jwt-new"
	"github.com/stretchr/testify/assert"
)

const baseURL = "http://localhost:8080"

// CreateOrderResponse – структура ответа POST /create-order
type CreateOrderResponse struct {
	OrderID        int64  `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	ProviderIntent *struct {
		ID string `json:"id"`
	} `json:"providerIntent"`
}

// OrderInfo – элемент ответа GET /orders
type OrderInfo struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	TotalCents  int    `json:"total_cents"`
}

// WebhookResponse – тело ответа вебхука оплаты
type WebhookResponse struct {
	OK      bool   `json:"ok"`
	Skipped string `json:"skipped"`
}

// tokenFor выпускает JWT для тестового пользователя (нужен JWT_SECRET в окружении)
func tokenFor(t *testing.T, userID int64) string {
	token, err := security.NewToken(context.Background(), userID, "testuser@gmail.com", time.Hour)
	assert.NoError(t, err, "token issuance should not error")
	assert.NotEmpty(t, token, "token should not be empty")
	return token
}

func createOrder(t *testing.T, token string, body []byte) (*http.Response, CreateOrderResponse) {
	req, err := http.NewRequest("POST", baseURL+"/create-order", bytes.NewBuffer(body))
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)

	var orderResp CreateOrderResponse
	if resp.StatusCode == http.StatusOK {
		err = json.NewDecoder(resp.Body).Decode(&orderResp)
		assert.NoError(t, err, "decoding order response should succeed")
	}
	return resp, orderResp
}

// сценарий оформления заказа с оплатой при получении
func TestCreateOrderCOD(t *testing.T) {
	token := tokenFor(t, 1)

	body := []byte(`{
		"cart": [{"id": 1, "qty": 1, "size": "M"}],
		"shipping": {"full_name": "Test Buyer", "city": "Mumbai", "pincode": "400001"},
		"email": "buyer@test.com",
		"payment_method": "cod"
	}`)
	resp, orderResp := createOrder(t, token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 for COD order")
	assert.NotEmpty(t, orderResp.OrderNumber, "order number should be assigned")
	assert.Nil(t, orderResp.ProviderIntent, "COD order should not carry a provider intent")
}

// сценарий оформления заказа через платёжный шлюз
func TestCreateOrderGateway(t *testing.T) {
	token := tokenFor(t, 1)

	body := []byte(`{
		"cart": [{"id": 1, "qty": 1, "size": "M"}],
		"shipping": {"full_name": "Test Buyer", "city": "Mumbai", "pincode": "400001"},
		"email": "buyer@test.com",
		"payment_method": "gateway"
	}`)
	resp, orderResp := createOrder(t, token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 for gateway order")
	assert.NotNil(t, orderResp.ProviderIntent, "gateway order should carry a provider intent")
	assert.NotEmpty(t, orderResp.ProviderIntent.ID)
}

// сценарий с пустой корзиной
func TestCreateOrderEmptyCart(t *testing.T) {
	token := tokenFor(t, 1)

	body := []byte(`{"cart": [], "shipping": {}, "payment_method": "cod"}`)
	resp, _ := createOrder(t, token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for empty cart")
}

// сценарий с несуществующим товаром
func TestCreateOrderUnknownProduct(t *testing.T) {
	token := tokenFor(t, 1)

	body := []byte(`{"cart": [{"id": 999999, "qty": 1}], "shipping": {}, "payment_method": "cod"}`)
	resp, _ := createOrder(t, token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 for unknown product")
}

// сценарий с количеством больше остатка
func TestCreateOrderInsufficientStock(t *testing.T) {
	token := tokenFor(t, 1)

	body := []byte(`{"cart": [{"id": 1, "qty": 100000, "size": "M"}], "shipping": {}, "payment_method": "cod"}`)
	resp, _ := createOrder(t, token, body)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected 400 when stock is insufficient")
}

// сценарий без авторизации
func TestCreateOrderUnauthorized(t *testing.T) {
	body := []byte(`{"cart": [{"id": 1, "qty": 1}], "shipping": {}, "payment_method": "cod"}`)
	resp, err := http.Post(baseURL+"/create-order", "application/json", bytes.NewBuffer(body))
	assert.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for missing token")
}

// сценарий просмотра своих заказов
func TestListOrders(t *testing.T) {
	token := tokenFor(t, 1)

	// Сначала создаём заказ, чтобы истории было что показать
	body := []byte(`{"cart": [{"id": 1, "qty": 1, "size": "M"}], "shipping": {}, "payment_method": "cod"}`)
	createResp, created := createOrder(t, token, body)
	createResp.Body.Close()
	assert.Equal(t, http.StatusOK, createResp.StatusCode)

	req, err := http.NewRequest("GET", baseURL+"/orders", nil)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 OK for /orders")

	var orders []OrderInfo
	err = json.NewDecoder(resp.Body).Decode(&orders)
	assert.NoError(t, err)

	var found bool
	for _, o := range orders {
		if o.OrderNumber == created.OrderNumber {
			found = true
			break
		}
	}
	assert.True(t, found, "created order should appear in the user's history")
}

// сценарий просмотра заказов без авторизации
func TestListOrdersUnauthorized(t *testing.T) {
	req, err := http.NewRequest("GET", baseURL+"/orders", nil)
	assert.NoError(t, err)

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 unauthorized for missing token")
}

func signWebhook(t *testing.T, body []byte) string {
	secret := os.Getenv("RZ_WEBHOOK_SECRET")
	assert.NotEmpty(t, secret, "RZ_WEBHOOK_SECRET must be set for webhook tests")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, body []byte, signature string) *http.Response {
	req, err := http.NewRequest("POST", baseURL+"/webhooks/payment", bytes.NewBuffer(body))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	assert.NoError(t, err)
	return resp
}

// сценарий вебхука с неверной подписью
func TestWebhookInvalidSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"order_x"}}}}`)
	resp := postWebhook(t, body, "deadbeef")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for bad signature")
}

// сценарий вебхука без подписи
func TestWebhookMissingSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":"order_x"}}}}`)
	resp := postWebhook(t, body, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "expected 401 for missing signature")
}

// сценарий вебхука с незнакомым событием: подтверждаем без обработки
func TestWebhookUnknownEvent(t *testing.T) {
	body := []byte(`{"event":"payment.failed","payload":{}}`)
	resp := postWebhook(t, body, signWebhook(t, body))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 for unknown event")
}

// сценарий вебхука по неизвестному провайдерскому заказу
func TestWebhookUnknownProviderOrder(t *testing.T) {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_nonexistent"}}}}`)
	resp := postWebhook(t, body, signWebhook(t, body))
	defer resp.Body.Close()

	// Неизвестный заказ подтверждаем, чтобы провайдер не ретраил бесконечно
	assert.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 for unknown provider order")
}

// TestWebhookCapturedAndIdempotent проверяет полный цикл: gateway-заказ,
// захват оплаты вебхуком и идемпотентность повторной доставки.
func TestWebhookCapturedAndIdempotent(t *testing.T) {
	token := tokenFor(t, 1)

	createBody := []byte(`{"cart": [{"id": 1, "qty": 1, "size": "M"}], "shipping": {}, "payment_method": "gateway"}`)
	createResp, created := createOrder(t, token, createBody)
	createResp.Body.Close()
	assert.Equal(t, http.StatusOK, createResp.StatusCode)
	assert.NotNil(t, created.ProviderIntent)

	webhookBody := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_live_1","order_id":"` + created.ProviderIntent.ID + `","method":"upi"}}}}`)
	signature := signWebhook(t, webhookBody)

	// Первая доставка — переводит заказ в paid
	resp := postWebhook(t, webhookBody, signature)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var first WebhookResponse
	err := json.NewDecoder(resp.Body).Decode(&first)
	assert.NoError(t, err)
	assert.True(t, first.OK)
	assert.Empty(t, first.Skipped, "first delivery should not be skipped")

	// Повторная доставка того же события — подтверждается без повторной обработки
	resp2 := postWebhook(t, webhookBody, signature)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var second WebhookResponse
	err = json.NewDecoder(resp2.Body).Decode(&second)
	assert.NoError(t, err)
	assert.True(t, second.OK)
	assert.Equal(t, "already_paid", second.Skipped, "duplicate delivery should be skipped")

	// Заказ в истории должен стать оплаченным
	req, err := http.NewRequest("GET", baseURL+"/orders", nil)
	assert.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	client := &http.Client{}
	listResp, err := client.Do(req)
	assert.NoError(t, err)
	defer listResp.Body.Close()

	var orders []OrderInfo
	err = json.NewDecoder(listResp.Body).Decode(&orders)
	assert.NoError(t, err)
	var paid bool
	for _, o := range orders {
		if o.OrderNumber == created.OrderNumber && o.Status == "paid" {
			paid = true
			break
		}
	}
	assert.True(t, paid, "order should be paid after the captured webhook")
}
