package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linemk/ace-store/internal/service"
	"github.com/linemk/ace-store/internal/storage"
)

// SignatureHeader — заголовок подписи провайдера над сырым телом запроса
const SignatureHeader = "X-Razorpay-Signature"

const eventPaymentCaptured = "payment.captured"

// webhookEvent — конверт события провайдера. Известные события разбираются
// по полю event; всё незнакомое подтверждается без обработки.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity json.RawMessage `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// paymentEntity — минимально необходимая часть сущности платежа
type paymentEntity struct {
	OrderID string `json:"order_id"`
}

// WebhookResponse — тело успешного ответа вебхука
type WebhookResponse struct {
	OK      bool   `json:"ok"`
	Skipped string `json:"skipped,omitempty"`
}

// PaymentWebhookHandler обрабатывает запрос POST /webhooks/payment.
// Подпись проверяется над точными сырыми байтами тела и строго до того,
// как тело разбирается как JSON: неподписанный ввод не обрабатывается.
func PaymentWebhookHandler(log *slog.Logger, secret string, webhookService service.WebhookService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentWebhookHandler"
		logger := log.With(slog.String("op", op))

		body, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("failed to read body", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		// Причину отказа наружу не сообщаем
		if !verifySignature(body, r.Header.Get(SignatureHeader), secret) {
			logger.Warn("invalid webhook signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			logger.Error("malformed webhook payload", slog.Any("error", err))
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		if event.Event != eventPaymentCaptured {
			// Безвредные незнакомые события подтверждаем, чтобы не
			// раскручивать ретраи провайдера
			logger.Info("ignoring webhook event", slog.String("event", event.Event))
			writeWebhookOK(w, logger, "")
			return
		}

		var entity paymentEntity
		if err := json.Unmarshal(event.Payload.Payment.Entity, &entity); err != nil || entity.OrderID == "" {
			logger.Warn("captured event without provider order id")
			writeWebhookOK(w, logger, "")
			return
		}

		alreadyPaid, err := webhookService.ProcessCaptured(r.Context(), entity.OrderID, event.Payload.Payment.Entity)
		switch {
		case errors.Is(err, storage.ErrPaymentNotFound):
			// Локальной записи ещё нет или событие чужое: подтверждаем
			logger.Warn("no local payment for provider order", slog.String("providerOrderID", entity.OrderID))
			writeWebhookOK(w, logger, "")
		case err != nil:
			logger.Error("failed to process captured event", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		case alreadyPaid:
			writeWebhookOK(w, logger, "already_paid")
		default:
			writeWebhookOK(w, logger, "")
		}
	}
}

// verifySignature сверяет hex(HMAC-SHA256(secret, body)) с заголовком,
// сравнение — за константное время.
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	provided := strings.ToLower(strings.TrimSpace(signature))
	return hmac.Equal([]byte(expected), []byte(provided))
}

func writeWebhookOK(w http.ResponseWriter, logger *slog.Logger, skipped string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(WebhookResponse{OK: true, Skipped: skipped}); err != nil {
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}
