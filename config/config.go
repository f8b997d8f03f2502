package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type Config struct {
	AppEnv      string        `mapstructure:"APP_ENV"`
	AppName     string        `mapstructure:"APP_NAME"`
	Port        string        `mapstructure:"PORT"`
	FrontendURL string        `mapstructure:"FRONTEND_URL"`
	MongoURI    string        `mapstructure:"MONGODB_URI"`
	DBName      string        `mapstructure:"DB_NAME"`
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTExpiry   time.Duration `mapstructure:"JWT_EXPIRY"`
	AdminEmails []string      `mapstructure:"ADMIN_EMAILS"`

	Server struct {
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`

	Razorpay struct {
		KeyID         string `mapstructure:"KEY_ID"`
		KeySecret     string `mapstructure:"KEY_SECRET"`
		AccountNumber string `mapstructure:"ACCOUNT_NUMBER"`
		BaseURL       string `mapstructure:"BASE_URL"`
	} `mapstructure:"RAZORPAY"`

	// ZeptoMail HTTP API
	Email struct {
		APIURL   string `mapstructure:"API_URL"`
		APIKey   string `mapstructure:"API_KEY"`
		From     string `mapstructure:"FROM"`
		FromName string `mapstructure:"FROM_NAME"`
	} `mapstructure:"EMAIL"`

	Cloudinary struct {
		CloudName string `mapstructure:"CLOUD_NAME"`
		APIKey    string `mapstructure:"API_KEY"`
		APISecret string `mapstructure:"API_SECRET"`
	} `mapstructure:"CLOUDINARY"`

	Redis struct {
		Addr     string `mapstructure:"ADDR"`
		Password string `mapstructure:"PASSWORD"`
		DB       int    `mapstructure:"DB"`
	} `mapstructure:"REDIS"`

	Notify struct {
		Backend    string `mapstructure:"BACKEND"` // asynq | inline
		BufferSize int    `mapstructure:"BUFFER_SIZE"`
	} `mapstructure:"NOTIFY"`

	Payout struct {
		SweepSpec   string `mapstructure:"SWEEP_SPEC"`
		SummarySpec string `mapstructure:"SUMMARY_SPEC"`
		NodeID      int64  `mapstructure:"NODE_ID"`
	} `mapstructure:"PAYOUT"`

	RateLimit struct {
		Requests int           `mapstructure:"REQUESTS"`
		Window   time.Duration `mapstructure:"WINDOW"`
	} `mapstructure:"RATE_LIMIT"`
}

var Module = fx.Module("config", fx.Provide(Load))

var defaults = map[string]any{
	"APP_ENV":                    "development",
	"APP_NAME":                   "lets-hang-api",
	"PORT":                       "5000",
	"FRONTEND_URL":               "http://localhost:5173",
	"MONGODB_URI":                "mongodb://localhost:27017/lets_hang",
	"DB_NAME":                    "lets_hang",
	"JWT_SECRET":                 "",
	"JWT_EXPIRY":                 7 * 24 * time.Hour,
	"ADMIN_EMAILS":               "",
	"HTTP_SERVER.READ_TIMEOUT":   15 * time.Second,
	"HTTP_SERVER.WRITE_TIMEOUT":  15 * time.Second,
	"RAZORPAY.KEY_ID":            "",
	"RAZORPAY.KEY_SECRET":        "",
	"RAZORPAY.ACCOUNT_NUMBER":    "",
	"RAZORPAY.BASE_URL":          "https://api.razorpay.com/v1",
	"EMAIL.API_URL":              "",
	"EMAIL.API_KEY":              "",
	"EMAIL.FROM":                 "",
	"EMAIL.FROM_NAME":            "Let's Hang",
	"CLOUDINARY.CLOUD_NAME":      "",
	"CLOUDINARY.API_KEY":         "",
	"CLOUDINARY.API_SECRET":      "",
	"REDIS.ADDR":                 "",
	"REDIS.PASSWORD":             "",
	"REDIS.DB":                   0,
	"NOTIFY.BACKEND":             "inline",
	"NOTIFY.BUFFER_SIZE":         256,
	"PAYOUT.SWEEP_SPEC":          "0 * * * *",
	"PAYOUT.SUMMARY_SPEC":        "0 0 * * *",
	"PAYOUT.NODE_ID":             1,
	"RATE_LIMIT.REQUESTS":        20,
	"RATE_LIMIT.WINDOW":          15 * time.Minute,
}

// Load reads .env (if present), an optional config.yaml and the process
// environment. Nested keys map to env vars with "." replaced by "_",
// e.g. RAZORPAY.KEY_ID -> RAZORPAY_KEY_ID.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &cfg, nil
}

func (c *Config) EmailConfigured() bool {
	return c.Email.APIURL != "" && c.Email.APIKey != "" && c.Email.From != ""
}

func (c *Config) RazorpayConfigured() bool {
	return c.Razorpay.KeyID != "" && c.Razorpay.KeySecret != ""
}

func (c *Config) CloudinaryConfigured() bool {
	return c.Cloudinary.CloudName != "" && c.Cloudinary.APIKey != "" && c.Cloudinary.APISecret != ""
}

func (c *Config) IsAdmin(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}
