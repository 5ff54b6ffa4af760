package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/db"
	"github.com/ignatzorin/escrow-backend/internal/events"
	httpHandlers "github.com/ignatzorin/escrow-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/escrow-backend/internal/http/router"
	"github.com/ignatzorin/escrow-backend/internal/idempotency"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/mail"
	"github.com/ignatzorin/escrow-backend/internal/payments"
	"github.com/ignatzorin/escrow-backend/internal/push"
	"github.com/ignatzorin/escrow-backend/internal/repository"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/storage"
	"github.com/ignatzorin/escrow-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Redis нужен для идемпотентности платёжных вебхуков; без него
	// дедупликация отключается (fail-open), сервис продолжает работать.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.Warnf("main: redis недоступен, дедупликация отключена: %v", err)
			rdb = nil
		}
	}
	deduper := idempotency.NewDeduper(rdb, cfg.IdempotencyTTL)

	// Kafka для доменных событий.
	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// S3 для документов KYC и вложений чата.
	s3Storage, err := storage.NewS3Storage(ctx, cfg)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Почта: без SMTP письма не отправляются.
	var mailer mail.Mailer = mail.NoopMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg)
	}

	// Push-уведомления через FCM.
	var pusher push.Sender = push.NoopSender{}
	if cfg.FCMCredentialsFile != "" {
		fcm, err := push.NewFCMSender(ctx, cfg.FCMCredentialsFile)
		if err != nil {
			logger.Log.Warnf("main: FCM не инициализирован: %v", err)
		} else {
			pusher = fcm
		}
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	stripeClient := payments.NewStripeClient(cfg)

	// Репозитории.
	customerRepo := repository.NewCustomerRepository(dbConn)
	contractRepo := repository.NewContractRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	chatRepo := repository.NewChatRepository(dbConn)
	kycRepo := repository.NewKycRepository(dbConn)
	adminRepo := repository.NewAdminRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	verificationRepo := repository.NewVerificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, publisher, hub, pusher)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))

	// При настроенной Kafka уведомления доставляет consumer; он читает
	// тот же топик, куда пишет publisher.
	if len(cfg.KafkaBrokers) > 0 {
		consumer := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, notificationService)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Log.Errorf("main: consumer уведомлений остановлен: %v", err)
			}
		}()
	}

	verificationService := service.NewVerificationService(verificationRepo, customerRepo, mailer)
	authService := service.NewAuthService(customerRepo, tokenManager, verificationService)
	contractService := service.NewContractService(contractRepo, customerRepo, mailer, notificationService)
	paymentService := service.NewPaymentService(paymentRepo, contractRepo, customerRepo, stripeClient, deduper, notificationService, cfg.StripeRefreshURL, cfg.StripeReturnURL)
	disputeService := service.NewDisputeService(disputeRepo, contractRepo, notificationService)
	chatService := service.NewChatService(chatRepo, hub)
	kycService := service.NewKycService(kycRepo, customerRepo, s3Storage, notificationService)
	adminService := service.NewAdminService(adminRepo, customerRepo, tokenManager)

	// HTTP хэндлеры.
	h := httpRouter.Handlers{
		Auth:         httpHandlers.NewAuthHandler(authService, verificationService),
		Contract:     httpHandlers.NewContractHandler(contractService),
		Payment:      httpHandlers.NewPaymentHandler(paymentService, contractService),
		Dispute:      httpHandlers.NewDisputeHandler(disputeService),
		Chat:         httpHandlers.NewChatHandler(chatService),
		Kyc:          httpHandlers.NewKycHandler(kycService),
		Admin:        httpHandlers.NewAdminHandler(adminService),
		Notification: httpHandlers.NewNotificationHandler(notificationService),
		Media:        httpHandlers.NewMediaHandler(s3Storage),
		Contact:      httpHandlers.NewContactHandler(mailer),
		Health:       httpHandlers.NewHealthHandler(dbConn, rdb),
		WS:           httpHandlers.NewWSHandler(hub, tokenManager),
	}

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, h, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
