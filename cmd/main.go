package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	cancelAppointmentHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/cancel_appointment"
	checkoutPaymentHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/checkout_payment"
	createBookingHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/create_booking"
	getAppointmentHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/get_appointment"
	getAvailableSlotsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/get_available_slots"
	getPaymentsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/get_payments"
	getUserAppointmentsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/get_user_appointments"
	listAppointmentsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/list_appointments"
	manageBlockedPeriodsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/manage_blocked_periods"
	managePatternsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/manage_patterns"
	manageSlotsHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/manage_slots"
	paymentWebhooksHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/payment_webhooks"
	updateAppointmentHandler "github.com/m04kA/SMC-ConsultationService/internal/api/handlers/update_appointment"
	"github.com/m04kA/SMC-ConsultationService/internal/api/middleware"
	"github.com/m04kA/SMC-ConsultationService/internal/config"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	emailLogRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/emaillog"
	"github.com/m04kA/SMC-ConsultationService/internal/infra/storage/memory"
	paymentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/payment"
	scheduleRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/schedule"
	"github.com/m04kA/SMC-ConsultationService/internal/integrations/mail"
	"github.com/m04kA/SMC-ConsultationService/internal/integrations/paypal"
	"github.com/m04kA/SMC-ConsultationService/internal/integrations/stripegateway"
	userServiceClient "github.com/m04kA/SMC-ConsultationService/internal/integrations/userservice"
	"github.com/m04kA/SMC-ConsultationService/internal/jobs"
	bookingsService "github.com/m04kA/SMC-ConsultationService/internal/service/bookings"
	calendarService "github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
	notificationsService "github.com/m04kA/SMC-ConsultationService/internal/service/notifications"
	paymentsService "github.com/m04kA/SMC-ConsultationService/internal/service/payments"
	checkoutPaymentUC "github.com/m04kA/SMC-ConsultationService/internal/usecase/checkout_payment"
	createBookingUC "github.com/m04kA/SMC-ConsultationService/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-ConsultationService/internal/usecase/get_available_slots"
	processPaymentEventUC "github.com/m04kA/SMC-ConsultationService/internal/usecase/process_payment_event"
	"github.com/m04kA/SMC-ConsultationService/pkg/clock"
	"github.com/m04kA/SMC-ConsultationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ConsultationService/pkg/keylock"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
	"github.com/m04kA/SMC-ConsultationService/pkg/metrics"
	"github.com/m04kA/SMC-ConsultationService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-ConsultationService/pkg/txmanager"
)

// TxManager интерфейс для transaction manager (используется в сервисах)
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// AppointmentStore репозиторий записей для календаря, координатора и платежного учета
type AppointmentStore interface {
	bookingsService.AppointmentRepository
	calendarService.AppointmentReader
	paymentsService.AppointmentReader
}

// storage репозитории выбранного драйвера
type storage struct {
	appointments AppointmentStore
	schedule     calendarService.ScheduleRepository
	payments     paymentsService.PaymentRepository
	emailLogs    notificationsService.EmailLogRepository
	txManager    TxManager
	close        func()
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ConsultationService...")
	log.Info("Configuration loaded from config.toml")

	location, err := cfg.Booking.Location()
	if err != nil {
		log.Fatal("Failed to load timezone %s: %v", cfg.Booking.Timezone, err)
	}

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаем хранилище
	store, err := openStorage(cfg, metricsCollector, log)
	if err != nil {
		log.Fatal("Failed to open storage: %v", err)
	}
	defer store.close()

	timeProvider := clock.Real{}

	// Инициализируем интеграционных клиентов
	userClient := userServiceClient.NewClient(
		cfg.UserService.URL,
		time.Duration(cfg.UserService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (UserService=%s timeout=%ds)", cfg.UserService.URL, cfg.UserService.Timeout)

	// Транспорт писем: очередь asynq или только лог
	var (
		transport   notificationsService.Transport
		queueClient *asynq.Client
		queueServer *asynq.Server
		queueMux    *asynq.ServeMux
	)
	if cfg.Email.Enabled {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Email.RedisAddr,
			Password: cfg.Email.RedisPassword,
			DB:       cfg.Email.RedisDB,
		}
		queueClient = asynq.NewClient(redisOpt)
		defer queueClient.Close()
		transport = mail.NewQueueTransport(queueClient, cfg.Email.Queue, cfg.Email.MaxRetry, log)

		queueServer = asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: cfg.Email.Concurrency,
			Queues:      map[string]int{cfg.Email.Queue: 1},
		})
		queueMux = asynq.NewServeMux()
		mail.NewWorker(mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}), log).Register(queueMux)
		log.Info("E-mail queue enabled (redis=%s, queue=%s)", cfg.Email.RedisAddr, cfg.Email.Queue)
	} else {
		transport = mail.NewLogTransport(log)
		log.Info("E-mail delivery disabled, messages are logged only")
	}

	// Инициализируем сервисы
	dispatcher, err := notificationsService.NewDispatcher(
		userClient,
		transport,
		store.emailLogs,
		timeProvider,
		metricsCollector,
		location,
		cfg.Booking.PaymentTimeout(),
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize notifications: %v", err)
	}

	calendarSvc := calendarService.NewService(
		store.schedule,
		store.appointments,
		store.txManager,
		keylock.New(),
		timeProvider,
		location,
		log,
	)

	ledger := paymentsService.NewLedger(
		store.payments,
		store.appointments,
		store.txManager,
		dispatcher,
		timeProvider,
		metricsCollector,
		cfg.Payments.MaxAttempts,
		log,
	)

	bookingSvc := bookingsService.NewService(
		store.appointments,
		calendarSvc,
		ledger,
		dispatcher,
		store.txManager,
		timeProvider,
		metricsCollector,
		bookingsService.Policy{
			PaymentTimeout:     cfg.Booking.PaymentTimeout(),
			CancellationWindow: cfg.Booking.CancellationWindow(),
			ReminderLead:       cfg.Booking.ReminderLead(),
			MeetingBaseURL:     cfg.Meetings.BaseURL,
		},
		log,
	)
	ledger.SetBookingConfirmer(bookingSvc)

	// Платежные системы
	gateways := make(map[domain.PaymentMethod]checkoutPaymentUC.PaymentGateway)
	capturers := make(map[domain.PaymentMethod]processPaymentEventUC.OrderCapturer)
	var (
		stripeGateway *stripegateway.Gateway
		paypalClient  *paypal.Client
	)
	if cfg.Payments.Stripe.Enabled {
		stripeGateway = stripegateway.NewGateway(stripegateway.Config{
			SecretKey:        cfg.Payments.Stripe.SecretKey,
			WebhookSecret:    cfg.Payments.Stripe.WebhookSecret,
			WebhookTolerance: time.Duration(cfg.Payments.Stripe.WebhookTolerance) * time.Second,
		}, nil, log)
		gateways[domain.MethodStripe] = stripeGateway
		log.Info("Stripe payments enabled")
	}
	if cfg.Payments.PayPal.Enabled {
		paypalClient = paypal.NewClient(paypal.Config{
			BaseURL:      cfg.Payments.PayPal.BaseURL,
			ClientID:     cfg.Payments.PayPal.ClientID,
			ClientSecret: cfg.Payments.PayPal.ClientSecret,
			WebhookToken: cfg.Payments.PayPal.WebhookToken,
			ReturnURL:    cfg.Payments.PayPal.ReturnURL,
			CancelURL:    cfg.Payments.PayPal.CancelURL,
			Timeout:      time.Duration(cfg.Payments.PayPal.Timeout) * time.Second,
		}, log)
		gateways[domain.MethodPayPal] = paypalClient
		capturers[domain.MethodPayPal] = paypalClient
		log.Info("PayPal payments enabled (base_url=%s)", cfg.Payments.PayPal.BaseURL)
	}

	// Инициализируем use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		bookingSvc,
		timeProvider,
		createBookingUC.Config{
			AdvanceBookingDays:      cfg.Booking.AdvanceBookingDays,
			MinBookingNoticeMinutes: cfg.Booking.MinBookingNoticeMinutes,
			Location:                location,
		},
		cfg.Booking.PaymentTimeout(),
		log,
	)

	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		calendarSvc,
		timeProvider,
		cfg.Booking.MinBookingNoticeMinutes,
		log,
	)

	checkoutPaymentUseCase := checkoutPaymentUC.NewUseCase(
		bookingSvc,
		ledger,
		gateways,
		checkoutPaymentUC.Pricing{
			Currency: cfg.Pricing.Currency,
			Prices: map[domain.AppointmentType]float64{
				domain.TypeInitialConsultation:       cfg.Pricing.InitialConsultation,
				domain.TypeComprehensiveConsultation: cfg.Pricing.ComprehensiveConsultation,
				domain.TypeFollowUp:                  cfg.Pricing.FollowUp,
			},
		},
		log,
	)

	processPaymentEventUseCase := processPaymentEventUC.NewUseCase(ledger, capturers, log)

	// Фоновые задачи
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler, err = jobs.NewScheduler(bookingSvc, calendarSvc, metricsCollector, jobs.Config{
			ExpirePendingSpec:    cfg.Jobs.ExpirePending,
			CompleteFinishedSpec: cfg.Jobs.CompleteFinished,
			RemindersSpec:        cfg.Jobs.Reminders,
			GenerateSlotsSpec:    cfg.Jobs.GenerateSlots,
			GenerationHorizon:    time.Duration(cfg.Booking.SlotGenerationHorizonDays) * 24 * time.Hour,
			RunTimeout:           time.Duration(cfg.Jobs.RunTimeout) * time.Second,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize jobs: %v", err)
		}
	}

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, location, log)
	getAppointment := getAppointmentHandler.NewHandler(bookingSvc, log)
	cancelAppointment := cancelAppointmentHandler.NewHandler(bookingSvc, log)
	updateAppointment := updateAppointmentHandler.NewHandler(bookingSvc, log)
	getPayments := getPaymentsHandler.NewHandler(ledger, log)
	getUserAppointments := getUserAppointmentsHandler.NewHandler(bookingSvc, log)
	checkoutPayment := checkoutPaymentHandler.NewHandler(checkoutPaymentUseCase, log)
	listAppointments := listAppointmentsHandler.NewHandler(bookingSvc, location, log)
	manageSlots := manageSlotsHandler.NewHandler(calendarSvc, location, log)
	managePatterns := managePatternsHandler.NewHandler(calendarSvc, location, log)
	manageBlockedPeriods := manageBlockedPeriodsHandler.NewHandler(calendarSvc, location, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Доступные окна специалиста
	api.HandleFunc("/availability", getAvailableSlots.Handle).Methods(http.MethodGet)

	// События платежных систем (проверяются подписью или токеном)
	if stripeGateway != nil {
		stripeWebhook := paymentWebhooksHandler.NewStripeHandler(stripeGateway, processPaymentEventUseCase, metricsCollector, log)
		api.HandleFunc("/webhooks/stripe", stripeWebhook.Handle).Methods(http.MethodPost)
	}
	if paypalClient != nil {
		paypalWebhook := paymentWebhooksHandler.NewPayPalHandler(paypalClient, processPaymentEventUseCase, metricsCollector, log)
		api.HandleFunc("/webhooks/paypal", paypalWebhook.Handle).Methods(http.MethodPost)
	}

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Записи ---
	protected.HandleFunc("/appointments", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/appointments/{appointmentId}", updateAppointment.Handle).Methods(http.MethodPut)
	protected.HandleFunc("/appointments/{appointmentId}/cancel", cancelAppointment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/payments", checkoutPayment.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/appointments/{appointmentId}/payments", getPayments.ListByAppointment).Methods(http.MethodGet)
	protected.HandleFunc("/payments/{paymentId}", getPayments.Get).Methods(http.MethodGet)
	protected.HandleFunc("/users/{userId}/appointments", getUserAppointments.Handle).Methods(http.MethodGet)

	// --- Администрирование (X-User-Role: admin) ---
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/appointments", listAppointments.Handle).Methods(http.MethodGet)

	admin.HandleFunc("/slots", manageSlots.Create).Methods(http.MethodPost)
	admin.HandleFunc("/slots", manageSlots.List).Methods(http.MethodGet)
	admin.HandleFunc("/slots/generate", manageSlots.Generate).Methods(http.MethodPost)
	admin.HandleFunc("/slots/{slotId}", manageSlots.Update).Methods(http.MethodPut)
	admin.HandleFunc("/slots/{slotId}", manageSlots.Delete).Methods(http.MethodDelete)

	admin.HandleFunc("/patterns", managePatterns.Create).Methods(http.MethodPost)
	admin.HandleFunc("/patterns", managePatterns.List).Methods(http.MethodGet)
	admin.HandleFunc("/patterns/{patternId}", managePatterns.Update).Methods(http.MethodPut)
	admin.HandleFunc("/patterns/{patternId}", managePatterns.Delete).Methods(http.MethodDelete)

	admin.HandleFunc("/blocked-periods", manageBlockedPeriods.Create).Methods(http.MethodPost)
	admin.HandleFunc("/blocked-periods", manageBlockedPeriods.List).Methods(http.MethodGet)
	admin.HandleFunc("/blocked-periods/{blockedId}", manageBlockedPeriods.Update).Methods(http.MethodPut)
	admin.HandleFunc("/blocked-periods/{blockedId}", manageBlockedPeriods.Delete).Methods(http.MethodDelete)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if queueServer != nil {
		g.Go(func() error {
			log.Info("Starting e-mail worker (concurrency=%d)", cfg.Email.Concurrency)
			if err := queueServer.Start(queueMux); err != nil {
				return fmt.Errorf("email worker: %w", err)
			}
			return nil
		})
	}

	if scheduler != nil {
		scheduler.Start()
		log.Info("Background jobs started")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
		)
		defer cancel()

		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				log.Warn("Background jobs did not stop in time: %v", err)
			}
		}
		if queueServer != nil {
			queueServer.Shutdown()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error: %v", err)
		return
	}

	log.Info("Service stopped gracefully")
}

// openStorage подключает PostgreSQL или in-memory хранилище
func openStorage(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore(time.Now)
		log.Warn("Using in-memory storage, data is lost on restart")
		return &storage{
			appointments: store.Appointments,
			schedule:     store.Schedule,
			payments:     store.Payments,
			emailLogs:    store.EmailLogs,
			txManager:    simpletxmanager.NewTransactionManager(store),
			close:        func() {},
		}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Запросы идут через обёртку с метриками; при выключенных метриках она только проксирует
	stopStats := make(chan struct{})
	wrappedDB := dbmetrics.WrapWithDefault(db, m, stopStats)

	return &storage{
		appointments: appointmentRepo.NewRepository(wrappedDB),
		schedule:     scheduleRepo.NewRepository(wrappedDB),
		payments:     paymentRepo.NewRepository(wrappedDB),
		emailLogs:    emailLogRepo.NewRepository(wrappedDB),
		txManager:    txmanager.NewTransactionManager(wrappedDB),
		close: func() {
			close(stopStats)
			db.Close()
		},
	}, nil
}
