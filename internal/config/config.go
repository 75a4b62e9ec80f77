package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var (
	// ErrInvalidConfig возвращается при некорректной конфигурации
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config конфигурация сервиса
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Logs        LogsConfig        `toml:"logs"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Booking     BookingConfig     `toml:"booking"`
	Pricing     PricingConfig     `toml:"pricing"`
	Payments    PaymentsConfig    `toml:"payments"`
	Email       EmailConfig       `toml:"email"`
	UserService UserServiceConfig `toml:"user_service"`
	Meetings    MeetingsConfig    `toml:"meetings"`
	Jobs        JobsConfig        `toml:"jobs"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

type DatabaseConfig struct {
	Driver          string `toml:"driver"` // postgres | memory
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

type BookingConfig struct {
	Timezone                  string `toml:"timezone"`
	PaymentTimeoutMinutes     int    `toml:"payment_timeout_minutes"`
	CancellationWindowHours   int    `toml:"cancellation_window_hours"`
	ReminderLeadHours         int    `toml:"reminder_lead_hours"`
	MinBookingNoticeMinutes   int    `toml:"min_booking_notice_minutes"`
	AdvanceBookingDays        int    `toml:"advance_booking_days"`
	SlotGenerationHorizonDays int    `toml:"slot_generation_horizon_days"`
}

// Location часовой пояс расписания
func (c BookingConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c BookingConfig) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutMinutes) * time.Minute
}

func (c BookingConfig) CancellationWindow() time.Duration {
	return time.Duration(c.CancellationWindowHours) * time.Hour
}

func (c BookingConfig) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadHours) * time.Hour
}

// PricingConfig цены консультаций по типам
type PricingConfig struct {
	Currency                  string  `toml:"currency"`
	InitialConsultation       float64 `toml:"initial_consultation"`
	ComprehensiveConsultation float64 `toml:"comprehensive_consultation"`
	FollowUp                  float64 `toml:"follow_up"`
}

type PaymentsConfig struct {
	MaxAttempts int          `toml:"max_attempts"` // 0 - без ограничений
	Stripe      StripeConfig `toml:"stripe"`
	PayPal      PayPalConfig `toml:"paypal"`
}

type StripeConfig struct {
	Enabled          bool   `toml:"enabled"`
	SecretKey        string `toml:"secret_key"`
	WebhookSecret    string `toml:"webhook_secret"`
	WebhookTolerance int    `toml:"webhook_tolerance"` // секунды
}

type PayPalConfig struct {
	Enabled      bool   `toml:"enabled"`
	BaseURL      string `toml:"base_url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	WebhookToken string `toml:"webhook_token"`
	ReturnURL    string `toml:"return_url"`
	CancelURL    string `toml:"cancel_url"`
	Timeout      int    `toml:"timeout"` // секунды
}

// EmailConfig отправка писем: очередь asynq в Redis и SMTP воркер
// При Enabled = false письма только пишутся в лог
type EmailConfig struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Queue         string `toml:"queue"`
	MaxRetry      int    `toml:"max_retry"`
	Concurrency   int    `toml:"concurrency"`
	SMTPHost      string `toml:"smtp_host"`
	SMTPPort      int    `toml:"smtp_port"`
	SMTPUsername  string `toml:"smtp_username"`
	SMTPPassword  string `toml:"smtp_password"`
	From          string `toml:"from"`
	FromName      string `toml:"from_name"`
}

type UserServiceConfig struct {
	URL     string `toml:"url"`
	Timeout int    `toml:"timeout"` // секунды
}

type MeetingsConfig struct {
	BaseURL string `toml:"base_url"`
}

// JobsConfig расписания фоновых задач в формате robfig/cron
type JobsConfig struct {
	Enabled          bool   `toml:"enabled"`
	ExpirePending    string `toml:"expire_pending"`
	CompleteFinished string `toml:"complete_finished"`
	Reminders        string `toml:"reminders"`
	GenerateSlots    string `toml:"generate_slots"`
	RunTimeout       int    `toml:"run_timeout"` // секунды
}

// Load читает .env (если есть), TOML файл и переменные окружения с секретами
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default конфигурация по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     15,
			WriteTimeout:    15,
			IdleTimeout:     60,
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Logs: LogsConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			ServiceName: "consultation_service",
			Path:        "/metrics",
		},
		Booking: BookingConfig{
			Timezone:                  "UTC",
			PaymentTimeoutMinutes:     30,
			CancellationWindowHours:   24,
			ReminderLeadHours:         24,
			MinBookingNoticeMinutes:   60,
			AdvanceBookingDays:        90,
			SlotGenerationHorizonDays: 30,
		},
		Pricing: PricingConfig{
			Currency: "EUR",
		},
		Payments: PaymentsConfig{
			MaxAttempts: 5,
			Stripe: StripeConfig{
				WebhookTolerance: 300,
			},
			PayPal: PayPalConfig{
				BaseURL: "https://api-m.sandbox.paypal.com",
				Timeout: 10,
			},
		},
		Email: EmailConfig{
			RedisAddr:   "localhost:6379",
			Queue:       "default",
			MaxRetry:    10,
			Concurrency: 5,
			SMTPPort:    587,
		},
		UserService: UserServiceConfig{
			Timeout: 5,
		},
		Jobs: JobsConfig{
			Enabled:          true,
			ExpirePending:    "@every 1m",
			CompleteFinished: "@every 5m",
			Reminders:        "@every 5m",
			GenerateSlots:    "@daily",
			RunTimeout:       60,
		},
	}
}

// applyEnv переопределяет секреты и адреса из переменных окружения
func (c *Config) applyEnv() {
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.DBName, "DB_NAME")

	setString(&c.Payments.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&c.Payments.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&c.Payments.PayPal.ClientID, "PAYPAL_CLIENT_ID")
	setString(&c.Payments.PayPal.ClientSecret, "PAYPAL_CLIENT_SECRET")
	setString(&c.Payments.PayPal.WebhookToken, "PAYPAL_WEBHOOK_TOKEN")

	setString(&c.Email.RedisAddr, "REDIS_ADDR")
	setString(&c.Email.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Email.SMTPUsername, "SMTP_USERNAME")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")

	setString(&c.UserService.URL, "USER_SERVICE_URL")
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var problems []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		problems = append(problems, "server.http_port must be in 1..65535")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			problems = append(problems, "database.host and database.dbname are required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}

	if _, err := c.Booking.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("booking.timezone: %v", err))
	}
	if c.Booking.PaymentTimeoutMinutes <= 0 {
		problems = append(problems, "booking.payment_timeout_minutes must be positive")
	}
	if c.Booking.CancellationWindowHours < 0 || c.Booking.ReminderLeadHours < 0 || c.Booking.MinBookingNoticeMinutes < 0 {
		problems = append(problems, "booking windows must not be negative")
	}

	if c.Pricing.Currency == "" {
		problems = append(problems, "pricing.currency is required")
	}
	if c.Pricing.InitialConsultation < 0 || c.Pricing.ComprehensiveConsultation < 0 || c.Pricing.FollowUp < 0 {
		problems = append(problems, "pricing must not be negative")
	}

	if c.Payments.MaxAttempts < 0 {
		problems = append(problems, "payments.max_attempts must not be negative")
	}
	if c.Payments.Stripe.Enabled && (c.Payments.Stripe.SecretKey == "" || c.Payments.Stripe.WebhookSecret == "") {
		problems = append(problems, "payments.stripe requires STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
	}
	if c.Payments.PayPal.Enabled {
		if c.Payments.PayPal.ClientID == "" || c.Payments.PayPal.ClientSecret == "" || c.Payments.PayPal.WebhookToken == "" {
			problems = append(problems, "payments.paypal requires PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET and PAYPAL_WEBHOOK_TOKEN")
		}
		if _, err := url.ParseRequestURI(c.Payments.PayPal.BaseURL); err != nil {
			problems = append(problems, "payments.paypal.base_url is invalid")
		}
	}

	if c.Email.Enabled && (c.Email.RedisAddr == "" || c.Email.SMTPHost == "" || c.Email.From == "") {
		problems = append(problems, "email requires redis_addr, smtp_host and from")
	}

	if c.UserService.URL == "" {
		problems = append(problems, "user_service.url is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
