package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	SMTP       SMTPConfig       `yaml:"smtp"`
	Notify     NotifyConfig     `yaml:"notify"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка проверки входящих токенов
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

// GatewayConfig — платёжный шлюз. Timeout — жёсткая граница одного
// обращения к провайдеру.
type GatewayConfig struct {
	Provider  string        `yaml:"provider" env-default:"razorpay"`
	BaseURL   string        `yaml:"base_url" env-default:"https://api.razorpay.com"`
	KeyID     string        `yaml:"-" env:"RZ_KEY" env-required:"true"`
	KeySecret string        `yaml:"-" env:"RZ_SECRET" env-required:"true"`
	Timeout   time.Duration `yaml:"timeout" env-default:"30s"`
}

// WebhookConfig — общий секрет подписи вебхуков провайдера
type WebhookConfig struct {
	Secret string `yaml:"-" env:"RZ_WEBHOOK_SECRET" env-required:"true"`
}

// SMTPConfig — исходящая почта для уведомлений
type SMTPConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"587"`
	From     string `yaml:"from" env-default:"orders@ace1.in"`
	Username string `yaml:"username"`
	Password string `yaml:"-" env:"SMTP_PASSWORD"`
}

// NotifyConfig — адрес оператора магазина для копий уведомлений
type NotifyConfig struct {
	OperatorEmail string `yaml:"operator_email" env-default:"hello@ace1.in"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
