package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	Feedback  FeedbackConfig
	Email     EmailConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
	// BaseURL публичный адрес API; используется планировщиком
	// для построения callback-адреса системного завершения тестов.
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MaxRetries: максимальное количество попыток переподключения (-1 - бесконечно).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff / MaxRetryBackoff: интервалы между попытками (в миллисекундах).
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// AuthConfig содержит настройки проверки bearer-токенов.
// Сами учетные записи и выпуск токенов живут во внешнем сервисе идентификации,
// здесь токен только проверяется и из него извлекается subject пользователя.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// SystemAPIKey защищает системные эндпоинты (callback планировщика).
	SystemAPIKey string `mapstructure:"system_api_key"`
	// AdminSubjects: список subject'ов, которым разрешены админ-операции.
	AdminSubjects []string `mapstructure:"admin_subjects"`
}

// SchedulerConfig содержит настройки очереди отложенных задач дедлайнов
type SchedulerConfig struct {
	// QueueKey имя sorted set в Redis с отложенными задачами
	QueueKey string `mapstructure:"queue_key"`
	// PollInterval период опроса очереди диспетчером (в миллисекундах)
	PollInterval int `mapstructure:"poll_interval"`
	// MaxAttempts количество попыток постановки задачи при старте теста
	MaxAttempts int `mapstructure:"max_attempts"`
	// BaseBackoff базовая задержка экспоненциального бэкоффа (в миллисекундах)
	BaseBackoff int `mapstructure:"base_backoff"`
	// MaxBackoff потолок задержки бэкоффа (в миллисекундах)
	MaxBackoff int `mapstructure:"max_backoff"`
	// RedeliverDelay задержка перед повторной доставкой неудавшейся задачи (в секундах)
	RedeliverDelay int `mapstructure:"redeliver_delay"`
}

// FeedbackConfig содержит настройки внешнего сервиса качественной обратной связи
type FeedbackConfig struct {
	// URL эндпоинт сервиса; пустая строка отключает обратную связь
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	// Timeout таймаут запроса (в секундах)
	Timeout int `mapstructure:"timeout"`
}

// EmailConfig содержит настройки отправки писем через Resend
type EmailConfig struct {
	// APIKey ключ Resend; пустая строка отключает отправку
	APIKey string `mapstructure:"api_key"`
	From   string `mapstructure:"from"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// PollIntervalDuration возвращает период опроса очереди как time.Duration
func (s *SchedulerConfig) PollIntervalDuration() time.Duration {
	if s.PollInterval <= 0 {
		return time.Second
	}
	return time.Duration(s.PollInterval) * time.Millisecond
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Новый экземпляр Viper, чтобы избежать глобального состояния

	// Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("scheduler.queue_key", "test:deadline:queue")
	vip.SetDefault("scheduler.poll_interval", 1000)
	vip.SetDefault("scheduler.max_attempts", 3)
	vip.SetDefault("scheduler.base_backoff", 4000)
	vip.SetDefault("scheduler.max_backoff", 10000)
	vip.SetDefault("scheduler.redeliver_delay", 30)
	vip.SetDefault("feedback.timeout", 30)

	// Привязываем переменные окружения явно
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.base_url", "API_BASE_URL")

	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")

	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("auth.system_api_key", "SYSTEM_API_KEY")

	vip.BindEnv("scheduler.queue_key", "SCHEDULER_QUEUE_KEY")
	vip.BindEnv("scheduler.poll_interval", "SCHEDULER_POLL_INTERVAL")
	vip.BindEnv("scheduler.max_attempts", "SCHEDULER_MAX_ATTEMPTS")

	vip.BindEnv("feedback.url", "FEEDBACK_URL")
	vip.BindEnv("feedback.api_key", "FEEDBACK_API_KEY")

	vip.BindEnv("email.api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	// Файл конфигурации опционален: BindEnv покрывает продовые окружения
	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Server BaseURL: %s", cfg.Server.BaseURL)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Scheduler Queue: %s", cfg.Scheduler.QueueKey)
		log.Printf("Feedback Enabled: %t", cfg.Feedback.URL != "")
		log.Printf("Email Enabled: %t", cfg.Email.APIKey != "")
		log.Printf("-----------------------------------------")
	}

	// Проверка обязательных параметров
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required (check AUTH_JWT_SECRET env var)")
	}
	if cfg.Auth.SystemAPIKey == "" {
		return nil, fmt.Errorf("system API key is required (check SYSTEM_API_KEY env var)")
	}
	if cfg.Server.BaseURL == "" {
		return nil, fmt.Errorf("server base URL is required for deadline callbacks (check API_BASE_URL env var)")
	}

	return &cfg, nil
}
