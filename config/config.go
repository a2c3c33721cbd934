package config

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/models"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	Environment string
	FrontendURL string

	// QRTokenSecret signs ticket tokens; WebhookSecret authenticates
	// inbound gateway events; PaymentAPIKey authorizes checkout calls.
	QRTokenSecret     string
	WebhookSecret     string
	PaymentAPIKey     string
	PaymentAPIBaseURL string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// LoadConfig reads the environment and fails fast on missing secrets: a
// process that cannot sign tokens or verify webhooks must not serve
// traffic.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		Environment: getEnv("APP_ENV", "development"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		QRTokenSecret:     os.Getenv("QR_TOKEN_SECRET"),
		WebhookSecret:     os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentAPIKey:     os.Getenv("PAYMENT_API_KEY"),
		PaymentAPIBaseURL: getEnv("PAYMENT_API_BASE_URL", "https://api.payment-gateway.example"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@aveline.example"),
	}

	if cfg.QRTokenSecret == "" {
		return nil, fmt.Errorf("QR_TOKEN_SECRET is not set")
	}
	if cfg.WebhookSecret == "" && !cfg.IsTest() {
		return nil, fmt.Errorf("PAYMENT_WEBHOOK_SECRET is not set")
	}
	if cfg.PaymentAPIKey == "" && !cfg.IsTest() {
		return nil, fmt.Errorf("PAYMENT_API_KEY is not set")
	}

	return cfg, nil
}

// IsTest reports whether webhook signature checking is bypassed. Only the
// explicit test environment may do that.
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	seedRoles(db)

	return db, nil
}

// Migrate creates the schema. Split out so tests can run it against their
// own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Location{}, &models.Category{},
		&models.Event{}, &models.Formation{}, &models.Ticket{},
		&models.Donation{}, &models.RefundRequest{}, &models.ContactMessage{},
	)
}

func seedRoles(db *gorm.DB) {
	roles := []models.Role{
		{Name: models.RoleAttendee},
		{Name: models.RoleValidator},
		{Name: models.RoleAdmin},
	}

	for _, role := range roles {
		var existingRole models.Role
		result := db.Where("name = ?", role.Name).First(&existingRole)
		if result.Error != nil {
			db.Create(&role)
		}
	}
}
