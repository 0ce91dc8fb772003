package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/ace-store/internal/app"
	"github.com/linemk/ace-store/internal/app/handlers"
	"github.com/linemk/ace-store/internal/config"
	"github.com/linemk/ace-store/internal/gateway"
	"github.com/linemk/ace-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/ace-store/internal/lib/logger"
	"github.com/linemk/ace-store/internal/lib/logger/handlers/urllog"
	"github.com/linemk/ace-store/internal/mailer"
	"github.com/linemk/ace-store/internal/service"
	"github.com/linemk/ace-store/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// слои по работе с БД по каждому направлению
	productRepo := storage.NewProductRepository(application.DB)
	inventoryRepo := storage.NewInventoryRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	paymentRepo := storage.NewPaymentRepository(application.DB)

	// внешние способности: платёжный шлюз и почта
	paymentGateway := gateway.NewRazorpayGateway(
		application.Logger,
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		cfg.Gateway.Timeout,
	)
	smtpMailer := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	notifier := service.NewEmailNotifier(application.Logger, smtpMailer, cfg.Notify.OperatorEmail)

	orderService := service.NewOrderService(application.Logger, application.DB,
		productRepo, inventoryRepo, orderRepo, paymentRepo, paymentGateway, notifier)
	webhookService := service.NewWebhookService(application.Logger, application.DB,
		paymentRepo, orderRepo, notifier)

	// эндпоинт для вебхуков провайдера: вместо JWT — подпись над телом
	router.Post("/webhooks/payment", handlers.PaymentWebhookHandler(application.Logger, cfg.Webhook.Secret, webhookService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware(cfg.JWT.Secret)
		r.Use(jwtMW)
		// эндпоинт для оформления заказа
		r.Post("/create-order", handlers.CreateOrderHandler(application.Logger, orderService))
		// эндпоинт для истории заказов пользователя
		r.Get("/orders", handlers.OrdersHandler(application.Logger, orderService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
