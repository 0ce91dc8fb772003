package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/linemk/ace-store/internal/gateway"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestCreateProviderOrder_Success(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_MkFq1",
			"amount":   1000,
			"currency": "INR",
			"receipt":  "ACE-1B9D6BCD",
			"status":   "created",
		})
	}))
	defer srv.Close()

	gw := gateway.NewRazorpayGateway(testLogger(), srv.URL, "rzp_key", "rzp_secret", 5*time.Second)

	order, err := gw.CreateProviderOrder(context.Background(), 1000, "INR", "ACE-1B9D6BCD")
	assert.NoError(t, err)
	assert.Equal(t, "order_MkFq1", order.ID)
	assert.Equal(t, 1000, order.AmountCents)
	assert.Equal(t, "INR", order.Currency)

	// Запрос ушёл с basic-auth ключами и суммой в минорных единицах
	assert.Equal(t, "rzp_key", gotAuthUser)
	assert.Equal(t, "rzp_secret", gotAuthPass)
	assert.Equal(t, float64(1000), gotBody["amount"])
	assert.Equal(t, "ACE-1B9D6BCD", gotBody["receipt"])
}

func TestCreateProviderOrder_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"BAD_REQUEST_ERROR"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	gw := gateway.NewRazorpayGateway(testLogger(), srv.URL, "rzp_key", "rzp_secret", 5*time.Second)

	_, err := gw.CreateProviderOrder(context.Background(), 1000, "INR", "ACE-1B9D6BCD")
	assert.True(t, errors.Is(err, gateway.ErrRejected), "expected ErrRejected, got: %v", err)
	assert.False(t, errors.Is(err, gateway.ErrTimeout))
}

func TestCreateProviderOrder_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Отвечаем заведомо дольше таймаута адаптера
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "order_late"})
	}))
	defer srv.Close()

	gw := gateway.NewRazorpayGateway(testLogger(), srv.URL, "rzp_key", "rzp_secret", 50*time.Millisecond)

	_, err := gw.CreateProviderOrder(context.Background(), 1000, "INR", "ACE-1B9D6BCD")
	assert.True(t, errors.Is(err, gateway.ErrTimeout), "expected ErrTimeout, got: %v", err)
}

func TestCreateProviderOrder_EmptyOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"amount": 1000, "currency": "INR"})
	}))
	defer srv.Close()

	gw := gateway.NewRazorpayGateway(testLogger(), srv.URL, "rzp_key", "rzp_secret", 5*time.Second)

	_, err := gw.CreateProviderOrder(context.Background(), 1000, "INR", "ACE-1B9D6BCD")
	assert.True(t, errors.Is(err, gateway.ErrRejected), "expected ErrRejected, got: %v", err)
}

func TestCreateProviderOrder_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // закрываем сразу: соединение будет отказано

	gw := gateway.NewRazorpayGateway(testLogger(), srv.URL, "rzp_key", "rzp_secret", 5*time.Second)

	_, err := gw.CreateProviderOrder(context.Background(), 1000, "INR", "ACE-1B9D6BCD")
	assert.True(t, errors.Is(err, gateway.ErrRejected), "expected ErrRejected, got: %v", err)
}
