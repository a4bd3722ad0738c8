package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Push     PushConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Ports    Ports
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig locates the black-box restaurant backend API.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PushConfig locates the order-status push channel.
type PushConfig struct {
	URL     string
	Subject string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
	SessionCookie   string
}

// Ports names the host-page render targets this gateway patches. The
// ids are a fixed contract with the host template; a missing id is a
// startup-time configuration error, never a silent fallback.
type Ports struct {
	MenuContainer    string
	CartItems        string
	CartTotal        string
	PaymentAmount    string
	ChangeAmount     string
	OrderNotes       string
	OrderStatus      string
	NotificationArea string
	Loading          string
	FilterError      string
	TotalOrders      string
	TotalRevenue     string
	SalesTable       string
	CategoryFilter   string
	CategoryChart    string
}

func Load() (*Config, error) {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Backend: BackendConfig{
			BaseURL: getEnvString("BACKEND_BASE_URL", "http://localhost:10000"),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Push: PushConfig{
			URL:     getEnvString("PUSH_URL", "nats://localhost:4222"),
			Subject: getEnvString("PUSH_SUBJECT", "orders.updated"),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			SessionCookie:   getEnvString("SESSION_COOKIE", "orderfront_session"),
		},
		Ports: DefaultPorts(),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultPorts returns the element ids of the stock host page.
func DefaultPorts() Ports {
	return Ports{
		MenuContainer:    getEnvString("PORT_MENU_CONTAINER", "menu-container"),
		CartItems:        getEnvString("PORT_CART_ITEMS", "cart-items"),
		CartTotal:        getEnvString("PORT_CART_TOTAL", "cart-total"),
		PaymentAmount:    getEnvString("PORT_PAYMENT_AMOUNT", "payment-amount"),
		ChangeAmount:     getEnvString("PORT_CHANGE_AMOUNT", "change-amount"),
		OrderNotes:       getEnvString("PORT_ORDER_NOTES", "order-notes"),
		OrderStatus:      getEnvString("PORT_ORDER_STATUS", "order-status"),
		NotificationArea: getEnvString("PORT_NOTIFICATION_AREA", "notification-area"),
		Loading:          getEnvString("PORT_LOADING", "loading"),
		FilterError:      getEnvString("PORT_FILTER_ERROR", "filter-error"),
		TotalOrders:      getEnvString("PORT_TOTAL_ORDERS", "total-orders"),
		TotalRevenue:     getEnvString("PORT_TOTAL_REVENUE", "total-revenue"),
		SalesTable:       getEnvString("PORT_SALES_TABLE", "sales-table"),
		CategoryFilter:   getEnvString("PORT_CATEGORY_FILTER", "category-filter"),
		CategoryChart:    getEnvString("PORT_CATEGORY_CHART", "categoryChart"),
	}
}

// Validate reports the first missing render target.
func (p Ports) Validate() error {
	required := map[string]string{
		"menu container":    p.MenuContainer,
		"cart items":        p.CartItems,
		"cart total":        p.CartTotal,
		"payment amount":    p.PaymentAmount,
		"change amount":     p.ChangeAmount,
		"order notes":       p.OrderNotes,
		"order status":      p.OrderStatus,
		"notification area": p.NotificationArea,
		"loading":           p.Loading,
		"filter error":      p.FilterError,
		"total orders":      p.TotalOrders,
		"total revenue":     p.TotalRevenue,
		"sales table":       p.SalesTable,
		"category filter":   p.CategoryFilter,
		"category chart":    p.CategoryChart,
	}
	for name, id := range required {
		if id == "" {
			return fmt.Errorf("view port %q has no element id", name)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL cannot be empty")
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if c.Push.URL == "" {
		return fmt.Errorf("push channel URL cannot be empty")
	}

	if c.Push.Subject == "" {
		return fmt.Errorf("push channel subject cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Security.SessionCookie == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}

	return c.Ports.Validate()
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
