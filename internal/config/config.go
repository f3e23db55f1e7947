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
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Composer ComposerConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
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

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// StorageConfig содержит настройки объектного хранилища артефактов (GCS)
type StorageConfig struct {
	// Bucket: имя бакета для опубликованных шаблонов викторин
	Bucket string `mapstructure:"bucket"`

	// CDNDomain: публичный CDN-домен перед бакетом. Если пуст,
	// публичные URL строятся напрямую через storage.googleapis.com.
	CDNDomain string `mapstructure:"cdn_domain"`
}

// ComposerConfig содержит настройки движка составления викторины дня
type ComposerConfig struct {
	// TargetQuestionCount: целевой размер викторины
	TargetQuestionCount int `mapstructure:"target_question_count"`

	// DefaultMode: режим составления по умолчанию (mix|spotlight|event)
	DefaultMode string `mapstructure:"default_mode"`

	// OverexposureLimit: порог переэкспозиции на самом строгом уровне отбора
	OverexposureLimit int `mapstructure:"overexposure_limit"`

	// DropHourUTC: час выкладки викторины (UTC)
	DropHourUTC int `mapstructure:"drop_hour_utc"`

	// SpotlightThemes: ротация тем для режима spotlight
	SpotlightThemes []string `mapstructure:"spotlight_themes"`

	// EventTag: тег события для режима event
	EventTag string `mapstructure:"event_tag"`

	// RetryBatchLimit: сколько неопубликованных викторин обрабатывать за retry-проход
	RetryBatchLimit int `mapstructure:"retry_batch_limit"`

	// RetryIntervalSec: интервал retry-прохода в секундах (0 - проход отключен)
	RetryIntervalSec int `mapstructure:"retry_interval_sec"`

	// StatsCacheTTLSec: время жизни кеша статистики составления в секундах
	StatsCacheTTLSec int `mapstructure:"stats_cache_ttl_sec"`
}

// StatsCacheTTL возвращает TTL кеша статистики как Duration
func (c *ComposerConfig) StatsCacheTTL() time.Duration {
	if c.StatsCacheTTLSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.StatsCacheTTLSec) * time.Second
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Устанавливаем значения по умолчанию
	vip.SetDefault("composer.target_question_count", 6)
	vip.SetDefault("composer.default_mode", "mix")
	vip.SetDefault("composer.overexposure_limit", 10)
	vip.SetDefault("composer.drop_hour_utc", 9)
	vip.SetDefault("composer.retry_batch_limit", 10)
	vip.SetDefault("composer.retry_interval_sec", 300)
	vip.SetDefault("composer.stats_cache_ttl_sec", 60)

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции Storage
	vip.BindEnv("storage.bucket", "STORAGE_BUCKET")
	vip.BindEnv("storage.cdn_domain", "STORAGE_CDN_DOMAIN")

	// Привязка для секции Composer
	vip.BindEnv("composer.target_question_count", "COMPOSER_TARGET_QUESTION_COUNT")
	vip.BindEnv("composer.default_mode", "COMPOSER_DEFAULT_MODE")
	vip.BindEnv("composer.overexposure_limit", "COMPOSER_OVEREXPOSURE_LIMIT")
	vip.BindEnv("composer.drop_hour_utc", "COMPOSER_DROP_HOUR_UTC")
	vip.BindEnv("composer.event_tag", "COMPOSER_EVENT_TAG")
	vip.BindEnv("composer.retry_interval_sec", "COMPOSER_RETRY_INTERVAL_SEC")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")

	// 3. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 4. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 5. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database User: %s", cfg.Database.User)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Database SSLMode: %s", cfg.Database.SSLMode)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("Storage Bucket: %s", cfg.Storage.Bucket)
		log.Printf("Storage CDN Domain: %s", cfg.Storage.CDNDomain)
		log.Printf("Composer Target Questions: %d", cfg.Composer.TargetQuestionCount)
		log.Printf("Composer Default Mode: %s", cfg.Composer.DefaultMode)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 7. Проверка обязательных параметров
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if cfg.Storage.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required in config (check STORAGE_BUCKET env var)")
	}
	// Пароль БД обязателен вне режима разработки
	ginMode := vip.GetString("GIN_MODE")
	if ginMode != "debug" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
		}
		isRedisConfigured := len(cfg.Redis.Addrs) > 0 || cfg.Redis.Addr != ""
		if isRedisConfigured && cfg.Redis.Password == "" {
			log.Println("Warning: Redis is configured but REDIS_PASSWORD is not set in a non-debug environment.")
		}
	}

	return &cfg, nil
}
